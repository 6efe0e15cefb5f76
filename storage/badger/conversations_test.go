package badger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

func TestConversationRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create defaults to active", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()

		conv := &core.Conversation{TenantID: tenantID, ExternalID: "ticket-42"}
		require.NoError(t, store.Conversations().CreateConversation(ctx, conv))
		assert.NotEqual(t, uuid.Nil, conv.ID)

		got, err := store.Conversations().GetConversation(ctx, tenantID, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, core.ConversationStatusActive, got.Status)
		assert.Equal(t, "ticket-42", got.ExternalID)
	})

	t.Run("conversation is invisible to other tenants", func(t *testing.T) {
		store := newTestStore(t)
		conv := &core.Conversation{TenantID: uuid.New()}
		require.NoError(t, store.Conversations().CreateConversation(ctx, conv))

		_, err := store.Conversations().GetConversation(ctx, uuid.New(), conv.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("status and summary updates", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()
		conv := &core.Conversation{TenantID: tenantID}
		require.NoError(t, store.Conversations().CreateConversation(ctx, conv))

		require.NoError(t, store.Conversations().UpdateConversationStatus(ctx, tenantID, conv.ID, core.ConversationStatusClosed))
		require.NoError(t, store.Conversations().SetSummary(ctx, tenantID, conv.ID, "customer asked about refunds"))

		got, err := store.Conversations().GetConversation(ctx, tenantID, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, core.ConversationStatusClosed, got.Status)
		assert.Equal(t, "customer asked about refunds", got.Summary)
	})

	t.Run("increment returns the running count", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()
		conv := &core.Conversation{TenantID: tenantID}
		require.NoError(t, store.Conversations().CreateConversation(ctx, conv))

		for want := 1; want <= 3; want++ {
			count, err := store.Conversations().IncrementMessageCount(ctx, tenantID, conv.ID)
			require.NoError(t, err)
			assert.Equal(t, want, count)
		}
	})
}

func TestMessageRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("messages list in chronological order", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()
		convID := uuid.New()

		base := time.Now().UTC().Add(-time.Hour)
		contents := []string{"first", "second", "third"}
		for i, content := range contents {
			require.NoError(t, store.Messages().AddMessage(ctx, &core.Message{
				ConversationID: convID,
				TenantID:       tenantID,
				Role:           core.RoleUser,
				Content:        content,
				CreatedAt:      base.Add(time.Duration(i) * time.Minute),
			}))
		}

		msgs, err := store.Messages().ListMessages(ctx, tenantID, convID)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		for i, msg := range msgs {
			assert.Equal(t, contents[i], msg.Content)
		}
	})

	t.Run("recent returns the tail in order", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()
		convID := uuid.New()

		base := time.Now().UTC().Add(-time.Hour)
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Messages().AddMessage(ctx, &core.Message{
				ConversationID: convID,
				TenantID:       tenantID,
				Role:           core.RoleUser,
				Content:        string(rune('a' + i)),
				CreatedAt:      base.Add(time.Duration(i) * time.Minute),
			}))
		}

		msgs, err := store.Messages().RecentMessages(ctx, tenantID, convID, 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "d", msgs[0].Content)
		assert.Equal(t, "e", msgs[1].Content)
	})

	t.Run("sources and confidence survive the roundtrip", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()
		convID := uuid.New()
		confidence := 0.823

		require.NoError(t, store.Messages().AddMessage(ctx, &core.Message{
			ConversationID: convID,
			TenantID:       tenantID,
			Role:           core.RoleAssistant,
			Content:        "answer",
			Confidence:     &confidence,
			Sources: []core.Source{
				{ChunkID: uuid.New(), DocumentID: uuid.New(), Score: 0.91, Preview: "preview text"},
			},
		}))

		msgs, err := store.Messages().ListMessages(ctx, tenantID, convID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.NotNil(t, msgs[0].Confidence)
		assert.InDelta(t, 0.823, *msgs[0].Confidence, 1e-9)
		require.Len(t, msgs[0].Sources, 1)
		assert.InDelta(t, 0.91, msgs[0].Sources[0].Score, 1e-9)
	})

	t.Run("messages are tenant scoped", func(t *testing.T) {
		store := newTestStore(t)
		tenantID := uuid.New()
		convID := uuid.New()

		require.NoError(t, store.Messages().AddMessage(ctx, &core.Message{
			ConversationID: convID,
			TenantID:       tenantID,
			Role:           core.RoleUser,
			Content:        "private",
		}))

		msgs, err := store.Messages().ListMessages(ctx, uuid.New(), convID)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}
