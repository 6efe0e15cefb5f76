package badger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/groundwork/core"
)

func TestChunkRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("replace is atomic per document", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()
		docID := uuid.New()

		require.NoError(t, store.Chunks().ReplaceChunks(ctx, tenantID, docID, []*core.StoredChunk{
			{Content: "old a", Index: 0, Embedding: []float32{1, 0}},
			{Content: "old b", Index: 1, Embedding: []float32{0, 1}},
			{Content: "old c", Index: 2, Embedding: []float32{1, 1}},
		}))

		count, err := store.Chunks().CountChunks(ctx, tenantID, docID)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		require.NoError(t, store.Chunks().ReplaceChunks(ctx, tenantID, docID, []*core.StoredChunk{
			{Content: "new a", Index: 0, Embedding: []float32{1, 0}},
		}))

		count, err = store.Chunks().CountChunks(ctx, tenantID, docID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		results, err := store.Chunks().SearchSimilar(ctx, tenantID, []float32{1, 0}, 0.0, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "new a", results[0].Content)
	})

	t.Run("search orders by similarity and applies threshold", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()
		docID := uuid.New()

		require.NoError(t, store.Chunks().ReplaceChunks(ctx, tenantID, docID, []*core.StoredChunk{
			{Content: "exact", Index: 0, Embedding: []float32{1, 0}, TokenCount: 2},
			{Content: "orthogonal", Index: 1, Embedding: []float32{0, 1}},
			{Content: "close", Index: 2, Embedding: []float32{0.8, 0.6}},
		}))

		results, err := store.Chunks().SearchSimilar(ctx, tenantID, []float32{1, 0}, 0.5, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "exact", results[0].Content)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
		assert.Equal(t, "close", results[1].Content)
		assert.InDelta(t, 0.8, results[1].Score, 1e-6)
	})

	t.Run("search honors topK", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()
		docID := uuid.New()

		chunks := make([]*core.StoredChunk, 5)
		for i := range chunks {
			chunks[i] = &core.StoredChunk{Content: "chunk", Index: i, Embedding: []float32{1, 0}}
		}
		require.NoError(t, store.Chunks().ReplaceChunks(ctx, tenantID, docID, chunks))

		results, err := store.Chunks().SearchSimilar(ctx, tenantID, []float32{1, 0}, 0.0, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("search never crosses tenants", func(t *testing.T) {
		store := newTestStore(t)
		tenantA := uuid.New()
		tenantB := uuid.New()

		require.NoError(t, store.Chunks().ReplaceChunks(ctx, tenantA, uuid.New(), []*core.StoredChunk{
			{Content: "belongs to A", Index: 0, Embedding: []float32{1, 0}},
		}))
		require.NoError(t, store.Chunks().ReplaceChunks(ctx, tenantB, uuid.New(), []*core.StoredChunk{
			{Content: "belongs to B", Index: 0, Embedding: []float32{1, 0}},
		}))

		results, err := store.Chunks().SearchSimilar(ctx, tenantA, []float32{1, 0}, 0.0, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "belongs to A", results[0].Content)
	})

	t.Run("chunk metadata survives the roundtrip", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()
		docID := uuid.New()

		require.NoError(t, store.Chunks().ReplaceChunks(ctx, tenantID, docID, []*core.StoredChunk{
			{
				Content:   "with metadata",
				Index:     0,
				Embedding: []float32{1, 0},
				Metadata:  map[string]any{"section": "# Billing"},
			},
		}))

		results, err := store.Chunks().SearchSimilar(ctx, tenantID, []float32{1, 0}, 0.5, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "# Billing", results[0].Metadata["section"])
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 3}), 1e-6)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
