package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// MessageRepository implements storage.MessageStore for PostgreSQL.
type MessageRepository struct {
	pool *pgxpool.Pool
}

var _ storage.MessageStore = (*MessageRepository)(nil)

// AddMessage appends a message to a conversation.
func (r *MessageRepository) AddMessage(ctx context.Context, msg *core.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var sources []byte
	if len(msg.Sources) > 0 {
		data, err := json.Marshal(msg.Sources)
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
		}
		sources = data
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, tenant_id, role, content,
			sources, confidence, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.ConversationID, msg.TenantID, msg.Role, msg.Content,
		sources, msg.Confidence, msg.TokenCount, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListMessages returns all messages of a conversation in chronological order.
func (r *MessageRepository) ListMessages(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*core.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, tenant_id, role, content, sources,
			confidence, token_count, created_at
		FROM messages
		WHERE tenant_id = $1 AND conversation_id = $2
		ORDER BY created_at ASC`,
		tenantID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// RecentMessages returns the last limit messages of a conversation in
// chronological order.
func (r *MessageRepository) RecentMessages(ctx context.Context, tenantID, conversationID uuid.UUID, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		return r.ListMessages(ctx, tenantID, conversationID)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, tenant_id, role, content, sources,
			confidence, token_count, created_at
		FROM (
			SELECT * FROM messages
			WHERE tenant_id = $1 AND conversation_id = $2
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC`,
		tenantID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]*core.Message, error) {
	var msgs []*core.Message
	for rows.Next() {
		var (
			msg     core.Message
			sources []byte
		)
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.TenantID, &msg.Role,
			&msg.Content, &sources, &msg.Confidence, &msg.TokenCount,
			&msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &msg.Sources); err != nil {
				return nil, fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
			}
		}
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}
