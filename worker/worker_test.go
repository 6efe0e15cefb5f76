package worker

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/groundwork/ai/mock"
	"github.com/poiesic/groundwork/chunker"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/ingest"
	"github.com/poiesic/groundwork/queue"
	qmemory "github.com/poiesic/groundwork/queue/memory"
	"github.com/poiesic/groundwork/storage"
	storebadger "github.com/poiesic/groundwork/storage/badger"
)

const testDim = 32

// runUntilCleanup runs fn in a goroutine and waits for it to exit during
// test cleanup, so background loops stop before the fixture's store closes.
func runUntilCleanup(t *testing.T, cancel context.CancelFunc, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() { defer close(done); fn() }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

type fixture struct {
	store    *storebadger.Store
	queue    *qmemory.Queue
	embedder *mock.Embedder
	pipeline *ingest.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storebadger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	q := qmemory.New(64)
	t.Cleanup(func() { q.Close() })

	embedder := mock.NewEmbedder(testDim)
	c := chunker.New(func(s string) int { return len(strings.Fields(s)) })
	pipeline := ingest.New(store.Documents(), store.Chunks(), c, embedder)

	return &fixture{store: store, queue: q, embedder: embedder, pipeline: pipeline}
}

func (f *fixture) createDocument(t *testing.T, content string) *core.Document {
	t.Helper()
	doc := &core.Document{
		TenantID:   uuid.New(),
		Title:      "Worker Doc",
		SourceType: core.SourceTypeText,
		RawContent: content,
	}
	require.NoError(t, f.store.Documents().CreateDocument(context.Background(), doc))
	return doc
}

// documentStatus swallows lookup errors so it can run inside Eventually
// conditions.
func (f *fixture) documentStatus(t *testing.T, doc *core.Document) core.DocumentStatus {
	got, err := f.store.Documents().GetDocument(context.Background(), doc.TenantID, doc.ID)
	if err != nil {
		return ""
	}
	return got.Status
}

// flakyDocuments fails a fixed number of GetDocument calls before
// delegating, simulating a transient store error.
type flakyDocuments struct {
	storage.DocumentStore
	remaining atomic.Int32
}

func (d *flakyDocuments) GetDocument(ctx context.Context, tenantID, id uuid.UUID) (*core.Document, error) {
	if d.remaining.Add(-1) >= 0 {
		return nil, errors.New("transient store error")
	}
	return d.DocumentStore.GetDocument(ctx, tenantID, id)
}

func TestWorker(t *testing.T) {
	t.Run("processes a queued document", func(t *testing.T) {
		f := newFixture(t)
		doc := f.createDocument(t, "Queued document body for ingestion.")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w := New(f.queue, f.pipeline, f.store.Documents(), WithPollTimeout(10*time.Millisecond))
		runUntilCleanup(t, cancel, func() { w.Run(ctx) })

		require.NoError(t, f.queue.Enqueue(ctx, queue.Job{DocumentID: doc.ID, TenantID: doc.TenantID}))

		assert.Eventually(t, func() bool {
			return f.documentStatus(t, doc) == core.DocumentStatusReady
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("retries on the backoff schedule until success", func(t *testing.T) {
		f := newFixture(t)
		doc := f.createDocument(t, "Flaky embedding target.")

		var calls atomic.Int32
		f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			if calls.Add(1) <= 2 {
				return nil, errors.New("transient embedding failure")
			}
			vectors := make([][]float32, len(texts))
			for i, text := range texts {
				vectors[i] = mock.DeterministicVector(text, testDim)
			}
			return vectors, nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w := New(f.queue, f.pipeline, f.store.Documents(),
			WithPollTimeout(10*time.Millisecond),
			WithRetryDelays(5*time.Millisecond, 5*time.Millisecond, 5*time.Millisecond))
		runUntilCleanup(t, cancel, func() { w.Run(ctx) })

		require.NoError(t, f.queue.Enqueue(ctx, queue.Job{DocumentID: doc.ID, TenantID: doc.TenantID}))

		assert.Eventually(t, func() bool {
			return f.documentStatus(t, doc) == core.DocumentStatusReady
		}, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("retries a transient failure before the processing claim", func(t *testing.T) {
		f := newFixture(t)
		doc := f.createDocument(t, "Briefly unreadable document.")

		// The first lookup fails before the document is claimed, so it
		// stays pending through the retry.
		docs := &flakyDocuments{DocumentStore: f.store.Documents()}
		docs.remaining.Store(1)
		c := chunker.New(func(s string) int { return len(strings.Fields(s)) })
		pipeline := ingest.New(docs, f.store.Chunks(), c, f.embedder)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w := New(f.queue, pipeline, docs,
			WithPollTimeout(10*time.Millisecond),
			WithRetryDelays(5*time.Millisecond, 5*time.Millisecond))
		runUntilCleanup(t, cancel, func() { w.Run(ctx) })

		require.NoError(t, f.queue.Enqueue(ctx, queue.Job{DocumentID: doc.ID, TenantID: doc.TenantID}))

		assert.Eventually(t, func() bool {
			return f.documentStatus(t, doc) == core.DocumentStatusReady
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("gives up after the schedule is exhausted", func(t *testing.T) {
		f := newFixture(t)
		doc := f.createDocument(t, "Permanently broken document.")

		var calls atomic.Int32
		f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			calls.Add(1)
			return nil, errors.New("permanent embedding failure")
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w := New(f.queue, f.pipeline, f.store.Documents(),
			WithPollTimeout(10*time.Millisecond),
			WithRetryDelays(5*time.Millisecond, 5*time.Millisecond))
		runUntilCleanup(t, cancel, func() { w.Run(ctx) })

		require.NoError(t, f.queue.Enqueue(ctx, queue.Job{DocumentID: doc.ID, TenantID: doc.TenantID}))

		// Initial attempt plus two retries, then the job is dropped.
		assert.Eventually(t, func() bool {
			return calls.Load() == 3 && f.documentStatus(t, doc) == core.DocumentStatusFailed
		}, 5*time.Second, 10*time.Millisecond)

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, core.DocumentStatusFailed, f.documentStatus(t, doc))
	})

	t.Run("drops jobs for deleted documents", func(t *testing.T) {
		f := newFixture(t)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w := New(f.queue, f.pipeline, f.store.Documents(), WithPollTimeout(10*time.Millisecond))
		runUntilCleanup(t, cancel, func() { w.Run(ctx) })

		require.NoError(t, f.queue.Enqueue(ctx, queue.Job{DocumentID: uuid.New(), TenantID: uuid.New()}))

		// The worker keeps running and can still process real work.
		doc := f.createDocument(t, "Real document after a ghost job.")
		require.NoError(t, f.queue.Enqueue(ctx, queue.Job{DocumentID: doc.ID, TenantID: doc.TenantID}))

		assert.Eventually(t, func() bool {
			return f.documentStatus(t, doc) == core.DocumentStatusReady
		}, 5*time.Second, 10*time.Millisecond)
	})
}

func TestDispatcher(t *testing.T) {
	t.Run("feeds pending documents to the worker", func(t *testing.T) {
		f := newFixture(t)
		doc := f.createDocument(t, "Dispatched document body.")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		d := NewDispatcher(f.store.Documents(), f.queue, WithDispatchInterval(10*time.Millisecond))
		w := New(f.queue, f.pipeline, f.store.Documents(), WithPollTimeout(10*time.Millisecond))
		runUntilCleanup(t, cancel, func() { d.Run(ctx) })
		runUntilCleanup(t, cancel, func() { w.Run(ctx) })

		assert.Eventually(t, func() bool {
			return f.documentStatus(t, doc) == core.DocumentStatusReady
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("does not re-enqueue documents already in flight", func(t *testing.T) {
		f := newFixture(t)
		doc := f.createDocument(t, "Slow consumer document.")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// No worker is draining the queue; several ticks must yield one job.
		d := NewDispatcher(f.store.Documents(), f.queue, WithDispatchInterval(5*time.Millisecond))
		runUntilCleanup(t, cancel, func() { d.Run(ctx) })

		time.Sleep(100 * time.Millisecond)
		cancel()

		first, err := f.queue.Dequeue(context.Background(), 50*time.Millisecond)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, doc.ID, first.DocumentID)

		second, err := f.queue.Dequeue(context.Background(), 50*time.Millisecond)
		require.NoError(t, err)
		assert.Nil(t, second)
	})

	t.Run("re-dispatches a document that stays pending past the deadline", func(t *testing.T) {
		f := newFixture(t)
		doc := f.createDocument(t, "Document whose job was lost.")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// No worker is draining the queue; the expired deadline makes the
		// dispatcher enqueue the still-pending document again.
		d := NewDispatcher(f.store.Documents(), f.queue,
			WithDispatchInterval(5*time.Millisecond),
			WithRequeueAfter(time.Millisecond))
		runUntilCleanup(t, cancel, func() { d.Run(ctx) })

		time.Sleep(100 * time.Millisecond)
		cancel()

		for i := 0; i < 2; i++ {
			job, err := f.queue.Dequeue(context.Background(), 50*time.Millisecond)
			require.NoError(t, err)
			require.NotNil(t, job)
			assert.Equal(t, doc.ID, job.DocumentID)
		}
	})
}
