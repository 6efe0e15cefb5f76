package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrClosed indicates that the queue has been closed.
var ErrClosed = errors.New("queue is closed")

// Job identifies a document awaiting ingestion.
type Job struct {
	DocumentID uuid.UUID `json:"document_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Attempt    int       `json:"attempt"`
}

// Queue is the ingestion job queue.
// Implementations must be thread-safe.
type Queue interface {
	// Enqueue adds a job to the queue.
	// Returns ErrClosed after Close.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue blocks until a job is available, the timeout elapses, or ctx
	// is cancelled. Returns (nil, nil) on timeout so pollers can loop
	// without treating an idle queue as an error.
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)

	// Close shuts the queue down. Blocked Dequeue calls return ErrClosed.
	Close() error
}
