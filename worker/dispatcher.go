package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/groundwork/queue"
	"github.com/poiesic/groundwork/storage"
)

const (
	// DefaultDispatchInterval is how often pending documents are polled.
	DefaultDispatchInterval = time.Second
	// DefaultDispatchBatch bounds pending documents fetched per poll.
	DefaultDispatchBatch = 50
	// DefaultRequeueAfter is how long an enqueued document may stay
	// pending before it is dispatched again. This recovers jobs lost
	// between enqueue and the worker's processing claim.
	DefaultRequeueAfter = time.Minute
)

// Dispatcher feeds pending documents into the job queue.
type Dispatcher struct {
	documents    storage.DocumentStore
	queue        queue.Queue
	interval     time.Duration
	batchSize    int
	requeueAfter time.Duration
	logger       *slog.Logger

	// seen maps documents already enqueued and still pending to their
	// enqueue time, so a slow worker doesn't get the same job once per
	// tick but a lost job is still re-dispatched eventually.
	seen map[uuid.UUID]time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchInterval sets the poll interval.
func WithDispatchInterval(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.interval = d
		}
	}
}

// WithDispatchBatch sets the pending documents fetched per poll.
func WithDispatchBatch(n int) DispatcherOption {
	return func(dp *Dispatcher) {
		if n > 0 {
			dp.batchSize = n
		}
	}
}

// WithRequeueAfter sets how long a still-pending document is considered
// in flight before it is dispatched again.
func WithRequeueAfter(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.requeueAfter = d
		}
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(documents storage.DocumentStore, q queue.Queue, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		documents:    documents,
		queue:        q,
		interval:     DefaultDispatchInterval,
		batchSize:    DefaultDispatchBatch,
		requeueAfter: DefaultRequeueAfter,
		logger:       slog.Default().With("component", "dispatcher"),
		seen:         make(map[uuid.UUID]time.Time),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run polls for pending documents until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", "interval", d.interval)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return nil
		case <-ticker.C:
			if err := d.dispatch(ctx); err != nil {
				d.logger.Error("dispatch failed", "error", err)
			}
		}
	}
}

// dispatch enqueues pending documents not already in flight. A document
// that leaves and re-enters the pending state (a retry) is enqueued again,
// and one that stays pending past the requeue deadline is enqueued anew.
func (d *Dispatcher) dispatch(ctx context.Context) error {
	pending, err := d.documents.ListPendingDocuments(ctx, d.batchSize)
	if err != nil {
		return err
	}

	now := time.Now()
	next := make(map[uuid.UUID]time.Time, len(pending))
	for _, doc := range pending {
		if enqueuedAt, inFlight := d.seen[doc.ID]; inFlight && now.Sub(enqueuedAt) < d.requeueAfter {
			next[doc.ID] = enqueuedAt
			continue
		}
		job := queue.Job{DocumentID: doc.ID, TenantID: doc.TenantID}
		if err := d.queue.Enqueue(ctx, job); err != nil {
			return err
		}
		next[doc.ID] = now
		d.logger.Debug("enqueued document", "document_id", doc.ID)
	}
	d.seen = next
	return nil
}
