package reindex

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/groundwork/ai/mock"
	"github.com/poiesic/groundwork/chunker"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/ingest"
	storebadger "github.com/poiesic/groundwork/storage/badger"
)

const testDim = 32

type fixture struct {
	store    *storebadger.Store
	embedder *mock.Embedder
	pipeline *ingest.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storebadger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := mock.NewEmbedder(testDim)
	c := chunker.New(func(s string) int { return len(strings.Fields(s)) })
	pipeline := ingest.New(store.Documents(), store.Chunks(), c, embedder)

	return &fixture{store: store, embedder: embedder, pipeline: pipeline}
}

func (f *fixture) createReadyDocument(t *testing.T, tenantID uuid.UUID, content string) *core.Document {
	t.Helper()
	doc := &core.Document{
		TenantID:   tenantID,
		Title:      "Reindex Doc",
		SourceType: core.SourceTypeText,
		RawContent: content,
	}
	require.NoError(t, f.store.Documents().CreateDocument(context.Background(), doc))
	require.NoError(t, f.pipeline.IngestDocument(context.Background(), tenantID, doc.ID))
	return doc
}

func TestReindexer(t *testing.T) {
	ctx := context.Background()

	t.Run("re-embeds every ready document", func(t *testing.T) {
		f := newFixture(t)
		tenantID := uuid.New()
		docs := []*core.Document{
			f.createReadyDocument(t, tenantID, "Refunds take thirty days."),
			f.createReadyDocument(t, tenantID, "Shipping takes three days."),
			f.createReadyDocument(t, tenantID, "Support is open on weekdays."),
		}
		f.embedder.Reset()

		var progress bytes.Buffer
		r := NewReindexer(f.store.Documents(), f.pipeline, nil, &progress)
		require.NoError(t, r.Run(ctx, tenantID))

		for _, doc := range docs {
			got, err := f.store.Documents().GetDocument(ctx, tenantID, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, core.DocumentStatusReady, got.Status)
		}
		assert.Positive(t, f.embedder.CallCount())
		assert.Contains(t, progress.String(), "Starting reindex of 3 documents")
		assert.Contains(t, progress.String(), "Reindexed 3 documents (0 skipped, 0 failed)")
	})

	t.Run("recovers failed documents", func(t *testing.T) {
		f := newFixture(t)
		tenantID := uuid.New()

		doc := &core.Document{
			TenantID:   tenantID,
			Title:      "Broken Doc",
			SourceType: core.SourceTypeText,
			RawContent: "Recoverable content.",
		}
		require.NoError(t, f.store.Documents().CreateDocument(ctx, doc))
		f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("embedding api down")
		}
		require.Error(t, f.pipeline.IngestDocument(ctx, tenantID, doc.ID))
		f.embedder.EmbedTextsFunc = nil

		var progress bytes.Buffer
		r := NewReindexer(f.store.Documents(), f.pipeline, nil, &progress)
		require.NoError(t, r.Run(ctx, tenantID))

		got, err := f.store.Documents().GetDocument(ctx, tenantID, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, core.DocumentStatusReady, got.Status)
	})

	t.Run("reports persistent failures", func(t *testing.T) {
		f := newFixture(t)
		tenantID := uuid.New()
		f.createReadyDocument(t, tenantID, "Will fail on re-embed.")
		f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("embedding api down")
		}

		var progress bytes.Buffer
		r := NewReindexer(f.store.Documents(), f.pipeline, nil, &progress)
		err := r.Run(ctx, tenantID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 failed")
	})

	t.Run("empty tenant is a no-op", func(t *testing.T) {
		f := newFixture(t)

		var progress bytes.Buffer
		r := NewReindexer(f.store.Documents(), f.pipeline, nil, &progress)
		require.NoError(t, r.Run(ctx, uuid.New()))
		assert.Contains(t, progress.String(), "No documents found")
	})

	t.Run("does not touch other tenants", func(t *testing.T) {
		f := newFixture(t)
		tenantID := uuid.New()
		otherTenant := uuid.New()
		f.createReadyDocument(t, tenantID, "Mine.")
		other := f.createReadyDocument(t, otherTenant, "Not mine.")
		f.embedder.Reset()

		var progress bytes.Buffer
		r := NewReindexer(f.store.Documents(), f.pipeline, nil, &progress)
		require.NoError(t, r.Run(ctx, tenantID))

		got, err := f.store.Documents().GetDocument(ctx, otherTenant, other.ID)
		require.NoError(t, err)
		assert.Equal(t, core.DocumentStatusReady, got.Status)
		assert.Contains(t, progress.String(), "Starting reindex of 1 documents")
	})

	t.Run("paginates beyond the batch size", func(t *testing.T) {
		f := newFixture(t)
		tenantID := uuid.New()
		for i := 0; i < 5; i++ {
			f.createReadyDocument(t, tenantID, "Paged document number "+strings.Repeat("x", i+1)+".")
		}

		var progress bytes.Buffer
		config := &Config{BatchSize: 2, ReportInterval: 2}
		r := NewReindexer(f.store.Documents(), f.pipeline, config, &progress)
		require.NoError(t, r.Run(ctx, tenantID))
		assert.Contains(t, progress.String(), "Starting reindex of 5 documents")
		assert.Contains(t, progress.String(), "Reindexed 5 documents")
	})
}
