package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// MessageRepository implements storage.MessageStore for BadgerDB.
type MessageRepository struct {
	backend *Backend
}

var _ storage.MessageStore = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(backend *Backend) *MessageRepository {
	return &MessageRepository{backend: backend}
}

// AddMessage appends a message to a conversation.
func (r *MessageRepository) AddMessage(ctx context.Context, msg *core.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		value, err := marshalValue(msg)
		if err != nil {
			return err
		}
		key := makeMessageKey(msg.ConversationID, msg.CreatedAt, msg.ID)
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListMessages returns all messages of a conversation in chronological order.
func (r *MessageRepository) ListMessages(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*core.Message, error) {
	return r.list(tenantID, conversationID)
}

// RecentMessages returns the last limit messages of a conversation in
// chronological order.
func (r *MessageRepository) RecentMessages(ctx context.Context, tenantID, conversationID uuid.UUID, limit int) ([]*core.Message, error) {
	msgs, err := r.list(tenantID, conversationID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// list iterates the conversation's messages in key order, which is
// chronological by construction. Messages written under a different tenant
// are filtered out.
func (r *MessageRepository) list(tenantID, conversationID uuid.UUID) ([]*core.Message, error) {
	var msgs []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessageConvPrefix(conversationID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var msg core.Message
			err := iter.Item().Value(func(val []byte) error {
				return unmarshalValue(val, &msg)
			})
			if err != nil {
				return err
			}
			if msg.TenantID != tenantID {
				continue
			}
			m := msg
			msgs = append(msgs, &m)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
