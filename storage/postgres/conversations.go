package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// ConversationRepository implements storage.ConversationStore for PostgreSQL.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

var _ storage.ConversationStore = (*ConversationRepository)(nil)

// CreateConversation persists a new conversation.
func (r *ConversationRepository) CreateConversation(ctx context.Context, conv *core.Conversation) error {
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	if conv.Status == "" {
		conv.Status = core.ConversationStatusActive
	}
	conv.CreatedAt = time.Now().UTC()
	conv.UpdatedAt = conv.CreatedAt

	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversations (id, tenant_id, external_id, status, summary,
			message_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		conv.ID, conv.TenantID, conv.ExternalID, conv.Status, conv.Summary,
		conv.MessageCount, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID within the tenant.
func (r *ConversationRepository) GetConversation(ctx context.Context, tenantID, id uuid.UUID) (*core.Conversation, error) {
	var conv core.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, external_id, status, summary, message_count,
			created_at, updated_at
		FROM conversations
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id).Scan(&conv.ID, &conv.TenantID, &conv.ExternalID,
		&conv.Status, &conv.Summary, &conv.MessageCount, &conv.CreatedAt,
		&conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}
	return &conv, nil
}

// UpdateConversationStatus sets the conversation status.
func (r *ConversationRepository) UpdateConversationStatus(ctx context.Context, tenantID, id uuid.UUID, status core.ConversationStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET status = $3, updated_at = $4
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating conversation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetSummary stores the rolling summary for a conversation.
func (r *ConversationRepository) SetSummary(ctx context.Context, tenantID, id uuid.UUID, summary string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET summary = $3, updated_at = $4
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, summary, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating conversation summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// IncrementMessageCount atomically increments the conversation's message
// count and returns the new value.
func (r *ConversationRepository) IncrementMessageCount(ctx context.Context, tenantID, id uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		UPDATE conversations
		SET message_count = message_count + 1, updated_at = $3
		WHERE tenant_id = $1 AND id = $2
		RETURNING message_count`,
		tenantID, id, time.Now().UTC()).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("incrementing message count: %w", err)
	}
	return count, nil
}
