package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// Integration tests run against a disposable database, e.g.
//
//	GROUNDWORK_TEST_DATABASE_URL=postgres://localhost/groundwork_test go test ./storage/postgres
//
// The schema is created with a 3-wide embedding column, so don't point this
// at a database holding real data.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("GROUNDWORK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GROUNDWORK_TEST_DATABASE_URL not set")
	}
	store, err := Open(context.Background(), url, WithVectorDim(3))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPostgresDocumentLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	doc := &core.Document{
		TenantID:   tenantID,
		Title:      "Integration Doc",
		SourceType: core.SourceTypeText,
		RawContent: "integration test content " + uuid.NewString(),
	}
	require.NoError(t, store.Documents().CreateDocument(ctx, doc))
	t.Cleanup(func() { store.Documents().DeleteDocument(ctx, tenantID, doc.ID) })

	t.Run("duplicate content is rejected", func(t *testing.T) {
		dup := &core.Document{
			TenantID:   tenantID,
			SourceType: core.SourceTypeText,
			RawContent: doc.RawContent,
		}
		assert.ErrorIs(t, store.Documents().CreateDocument(ctx, dup), storage.ErrDuplicateContent)
	})

	t.Run("tenant isolation on reads", func(t *testing.T) {
		_, err := store.Documents().GetDocument(ctx, uuid.New(), doc.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("status transitions are validated", func(t *testing.T) {
		err := store.Documents().UpdateDocumentStatus(ctx, tenantID, doc.ID, core.DocumentStatusReady)
		assert.ErrorIs(t, err, core.ErrInvalidTransition)
		require.NoError(t, store.Documents().UpdateDocumentStatus(ctx, tenantID, doc.ID, core.DocumentStatusProcessing))
	})

	t.Run("chunks search with tenant filter", func(t *testing.T) {
		require.NoError(t, store.Chunks().ReplaceChunks(ctx, tenantID, doc.ID, []*core.StoredChunk{
			{Content: "exact match", Index: 0, Embedding: []float32{1, 0, 0}, TokenCount: 2},
			{Content: "orthogonal", Index: 1, Embedding: []float32{0, 1, 0}},
		}))

		results, err := store.Chunks().SearchSimilar(ctx, tenantID, []float32{1, 0, 0}, 0.5, 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "exact match", results[0].Content)
		assert.InDelta(t, 1.0, results[0].Score, 1e-4)

		other, err := store.Chunks().SearchSimilar(ctx, uuid.New(), []float32{1, 0, 0}, 0.0, 5)
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("finalize records chunk count", func(t *testing.T) {
		require.NoError(t, store.Documents().FinalizeDocument(ctx, tenantID, doc.ID, 2))
		got, err := store.Documents().GetDocument(ctx, tenantID, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, core.DocumentStatusReady, got.Status)
		assert.Equal(t, 2, got.ChunkCount)
	})

	t.Run("delete cascades to chunks", func(t *testing.T) {
		require.NoError(t, store.Documents().DeleteDocument(ctx, tenantID, doc.ID))
		count, err := store.Chunks().CountChunks(ctx, tenantID, doc.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestPostgresConversations(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	conv := &core.Conversation{TenantID: tenantID, ExternalID: "it-1"}
	require.NoError(t, store.Conversations().CreateConversation(ctx, conv))

	count, err := store.Conversations().IncrementMessageCount(ctx, tenantID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	confidence := 0.75
	require.NoError(t, store.Messages().AddMessage(ctx, &core.Message{
		ConversationID: conv.ID,
		TenantID:       tenantID,
		Role:           core.RoleAssistant,
		Content:        "integration answer",
		Confidence:     &confidence,
		Sources:        []core.Source{{ChunkID: uuid.New(), DocumentID: uuid.New(), Score: 0.9}},
	}))

	msgs, err := store.Messages().ListMessages(ctx, tenantID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Confidence)
	assert.InDelta(t, 0.75, *msgs[0].Confidence, 1e-9)
	require.Len(t, msgs[0].Sources, 1)

	require.NoError(t, store.Conversations().SetSummary(ctx, tenantID, conv.ID, "summary"))
	got, err := store.Conversations().GetConversation(ctx, tenantID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "summary", got.Summary)
}
