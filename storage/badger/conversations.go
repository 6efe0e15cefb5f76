package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// ConversationRepository implements storage.ConversationStore for BadgerDB.
type ConversationRepository struct {
	backend *Backend
}

var _ storage.ConversationStore = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) *ConversationRepository {
	return &ConversationRepository{backend: backend}
}

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

	return r.backend.WithTx(func(tx *badger.Txn) error {
		value, err := marshalValue(conv)
		if err != nil {
			return err
		}
		if err := tx.Set(makeConversationKey(conv.TenantID, conv.ID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetConversation retrieves a conversation by ID within the tenant.
func (r *ConversationRepository) GetConversation(ctx context.Context, tenantID, id uuid.UUID) (*core.Conversation, error) {
	var conv *core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		conv, err = readConversation(tx, makeConversationKey(tenantID, id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, storage.ErrNotFound
	}
	return conv, nil
}

// UpdateConversationStatus sets the conversation status.
func (r *ConversationRepository) UpdateConversationStatus(ctx context.Context, tenantID, id uuid.UUID, status core.ConversationStatus) error {
	return r.update(tenantID, id, func(conv *core.Conversation) {
		conv.Status = status
	})
}

// SetSummary stores the rolling summary for a conversation.
func (r *ConversationRepository) SetSummary(ctx context.Context, tenantID, id uuid.UUID, summary string) error {
	return r.update(tenantID, id, func(conv *core.Conversation) {
		conv.Summary = summary
	})
}

// IncrementMessageCount atomically increments the conversation's message
// count and returns the new value.
func (r *ConversationRepository) IncrementMessageCount(ctx context.Context, tenantID, id uuid.UUID) (int, error) {
	newCount := 0
	err := r.update(tenantID, id, func(conv *core.Conversation) {
		conv.MessageCount++
		newCount = conv.MessageCount
	})
	if err != nil {
		return 0, err
	}
	return newCount, nil
}

func (r *ConversationRepository) update(tenantID, id uuid.UUID, mutate func(*core.Conversation)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(tenantID, id)
		conv, err := readConversation(tx, key)
		if err != nil {
			return err
		}
		if conv == nil {
			return storage.ErrNotFound
		}

		mutate(conv)
		conv.UpdatedAt = time.Now().UTC()

		value, err := marshalValue(conv)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readConversation reads a conversation by key, returning nil if it doesn't
// exist.
func readConversation(tx *badger.Txn, key []byte) (*core.Conversation, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var conv core.Conversation
	if err := item.Value(func(val []byte) error {
		return unmarshalValue(val, &conv)
	}); err != nil {
		return nil, err
	}
	return &conv, nil
}
