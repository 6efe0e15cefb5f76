// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/ingest"
	"github.com/poiesic/groundwork/queue"
	"github.com/poiesic/groundwork/storage"
)

// DefaultPollTimeout is how long a single dequeue blocks before the worker
// re-checks its context.
const DefaultPollTimeout = time.Second

// DefaultRetryDelays is the backoff schedule for failed ingestions. A job
// that exhausts the schedule is dropped, leaving the document failed.
var DefaultRetryDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

// Worker consumes ingestion jobs from the queue.
type Worker struct {
	queue       queue.Queue
	pipeline    *ingest.Pipeline
	documents   storage.DocumentStore
	pollTimeout time.Duration
	retryDelays []time.Duration
	logger      *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithPollTimeout sets the dequeue timeout.
func WithPollTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollTimeout = d
		}
	}
}

// WithRetryDelays replaces the backoff schedule.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(w *Worker) {
		w.retryDelays = delays
	}
}

// New creates a Worker.
func New(q queue.Queue, pipeline *ingest.Pipeline, documents storage.DocumentStore, opts ...Option) *Worker {
	w := &Worker{
		queue:       q,
		pipeline:    pipeline,
		documents:   documents,
		pollTimeout: DefaultPollTimeout,
		retryDelays: DefaultRetryDelays,
		logger:      slog.Default().With("component", "worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes jobs until the context is cancelled or the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	for {
		job, err := w.queue.Dequeue(ctx, w.pollTimeout)
		if errors.Is(err, queue.ErrClosed) || errors.Is(err, context.Canceled) {
			w.logger.Info("worker stopped")
			return nil
		}
		if err != nil {
			w.logger.Error("dequeue failed", "error", err)
			continue
		}
		if job == nil {
			continue
		}
		w.handle(ctx, job)
	}
}

func (w *Worker) handle(ctx context.Context, job *queue.Job) {
	err := w.pipeline.IngestDocument(ctx, job.TenantID, job.DocumentID)
	if err == nil {
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		// Document was deleted while queued.
		w.logger.Debug("dropping job for missing document",
			"document_id", job.DocumentID)
		return
	}
	if errors.Is(err, core.ErrInvalidTransition) {
		// Another worker holds the document.
		w.logger.Debug("document claimed elsewhere",
			"document_id", job.DocumentID)
		return
	}

	if job.Attempt >= len(w.retryDelays) {
		w.logger.Error("giving up on document",
			"document_id", job.DocumentID,
			"attempts", job.Attempt+1,
			"error", err)
		return
	}

	delay := w.retryDelays[job.Attempt]
	w.logger.Warn("ingestion failed, scheduling retry",
		"document_id", job.DocumentID,
		"attempt", job.Attempt+1,
		"delay", delay,
		"error", err)

	retry := queue.Job{
		DocumentID: job.DocumentID,
		TenantID:   job.TenantID,
		Attempt:    job.Attempt + 1,
	}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
		// The document sits in failed for the whole delay, which keeps the
		// dispatcher from re-enqueueing it early. Moving it back to
		// pending is what lets the pipeline claim it again. A failure
		// before the processing claim leaves the document pending, so the
		// flip is rejected; the retry must still run.
		err := w.documents.UpdateDocumentStatus(ctx, retry.TenantID, retry.DocumentID, core.DocumentStatusPending)
		if err != nil && !errors.Is(err, core.ErrInvalidTransition) {
			w.logger.Error("requeueing document status",
				"document_id", retry.DocumentID,
				"error", err)
			return
		}
		if err := w.queue.Enqueue(ctx, retry); err != nil {
			w.logger.Error("re-enqueue failed",
				"document_id", retry.DocumentID,
				"error", err)
		}
	}()
}
