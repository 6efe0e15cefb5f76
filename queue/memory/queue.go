// Package memory implements the job queue on a buffered channel for
// single-process deployments, where the API, dispatcher, and worker share
// one binary.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/groundwork/queue"
)

const defaultCapacity = 1024

// Queue is an in-process job queue.
type Queue struct {
	jobs chan queue.Job
	done chan struct{}

	closeOnce sync.Once
}

var _ queue.Queue = (*Queue)(nil)

// New creates a queue with the given capacity. Non-positive capacity uses
// the default.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Queue{
		jobs: make(chan queue.Job, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue adds a job, blocking if the queue is full.
func (q *Queue) Enqueue(ctx context.Context, job queue.Job) error {
	select {
	case <-q.done:
		return queue.ErrClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return queue.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a job is available, the timeout elapses, or ctx is
// cancelled.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case job := <-q.jobs:
		return &job, nil
	case <-timer.C:
		return nil, nil
	case <-q.done:
		// Drain anything already buffered before reporting closed.
		select {
		case job := <-q.jobs:
			return &job, nil
		default:
			return nil, queue.ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the queue down.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	return nil
}
