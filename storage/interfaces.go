package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/poiesic/groundwork/core"
)

// DocumentStore provides operations for managing documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentStore interface {
	// CreateDocument persists a new document.
	// Returns ErrDuplicateContent if the tenant already has a document
	// with the same content hash.
	CreateDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by ID within the tenant.
	// Returns ErrNotFound if it doesn't exist or belongs to another tenant.
	GetDocument(ctx context.Context, tenantID, id uuid.UUID) (*core.Document, error)

	// ListDocuments returns the tenant's documents ordered by creation time
	// descending. RawContent is not populated.
	ListDocuments(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*core.Document, error)

	// ListPendingDocuments returns up to limit documents in the pending
	// state across all tenants, oldest first. Used by the ingestion
	// dispatcher.
	ListPendingDocuments(ctx context.Context, limit int) ([]*core.Document, error)

	// UpdateDocumentStatus transitions a document to a new status.
	// Returns core.ErrInvalidTransition if the transition is not allowed
	// from the current status.
	UpdateDocumentStatus(ctx context.Context, tenantID, id uuid.UUID, status core.DocumentStatus) error

	// FinalizeDocument marks a processing document as ready and records
	// its chunk count.
	FinalizeDocument(ctx context.Context, tenantID, id uuid.UUID, chunkCount int) error

	// FindDocumentByContentHash looks up a tenant's document by content hash.
	// Returns ErrNotFound if no document matches.
	FindDocumentByContentHash(ctx context.Context, tenantID uuid.UUID, hash string) (*core.Document, error)

	// DeleteDocument removes a document and all of its chunks.
	// Returns ErrNotFound if the document doesn't exist in the tenant.
	DeleteDocument(ctx context.Context, tenantID, id uuid.UUID) error
}

// ChunkStore provides operations for managing embedded chunks.
type ChunkStore interface {
	// ReplaceChunks atomically replaces all chunks of a document.
	// Re-ingestion goes through here so a document never serves a mix of
	// old and new chunks.
	ReplaceChunks(ctx context.Context, tenantID, documentID uuid.UUID, chunks []*core.StoredChunk) error

	// SearchSimilar returns the tenant's chunks whose cosine similarity to
	// vector is >= threshold, ordered by similarity descending, up to topK
	// results. Chunks from other tenants are never returned.
	SearchSimilar(ctx context.Context, tenantID uuid.UUID, vector []float32, threshold float64, topK int) ([]*core.RetrievalResult, error)

	// CountChunks returns the number of stored chunks for a document.
	CountChunks(ctx context.Context, tenantID, documentID uuid.UUID) (int, error)
}

// ConversationStore provides operations for managing conversations.
type ConversationStore interface {
	// CreateConversation persists a new conversation.
	CreateConversation(ctx context.Context, conv *core.Conversation) error

	// GetConversation retrieves a conversation by ID within the tenant.
	// Returns ErrNotFound if it doesn't exist or belongs to another tenant.
	GetConversation(ctx context.Context, tenantID, id uuid.UUID) (*core.Conversation, error)

	// UpdateConversationStatus sets the conversation status.
	UpdateConversationStatus(ctx context.Context, tenantID, id uuid.UUID, status core.ConversationStatus) error

	// SetSummary stores the rolling summary for a conversation.
	SetSummary(ctx context.Context, tenantID, id uuid.UUID, summary string) error

	// IncrementMessageCount atomically increments the conversation's
	// message count and returns the new value.
	IncrementMessageCount(ctx context.Context, tenantID, id uuid.UUID) (int, error)
}

// MessageStore provides operations for managing conversation messages.
type MessageStore interface {
	// AddMessage appends a message to a conversation.
	AddMessage(ctx context.Context, msg *core.Message) error

	// ListMessages returns all messages of a conversation in chronological
	// order.
	ListMessages(ctx context.Context, tenantID, conversationID uuid.UUID) ([]*core.Message, error)

	// RecentMessages returns the last limit messages of a conversation in
	// chronological order.
	RecentMessages(ctx context.Context, tenantID, conversationID uuid.UUID, limit int) ([]*core.Message, error)
}

// Store aggregates the per-entity stores of a single backend.
type Store interface {
	Documents() DocumentStore
	Chunks() ChunkStore
	Conversations() ConversationStore
	Messages() MessageStore

	// Close closes the storage backend and releases resources.
	Close() error
}
