package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// HashContent computes a hex-encoded BLAKE2b digest of text content.
// Identical content always produces the identical hash, which makes it
// usable as a per-tenant deduplication key.
func HashContent(text string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// SourceType identifies the format of a document's raw content.
type SourceType string

const (
	SourceTypePDF      SourceType = "pdf"
	SourceTypeMarkdown SourceType = "markdown"
	SourceTypeHTML     SourceType = "html"
	SourceTypeText     SourceType = "text"
)

// Valid reports whether the source type is one of the known formats.
func (s SourceType) Valid() bool {
	switch s {
	case SourceTypePDF, SourceTypeMarkdown, SourceTypeHTML, SourceTypeText:
		return true
	}
	return false
}

// DocumentStatus tracks a document through the ingestion state machine:
// pending -> processing -> ready | failed.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// CanTransition reports whether moving from the current status to the target
// status is a legal ingestion state machine step. Failed and ready documents
// may be re-queued by resetting them to pending.
func (s DocumentStatus) CanTransition(to DocumentStatus) bool {
	switch s {
	case DocumentStatusPending:
		return to == DocumentStatusProcessing
	case DocumentStatusProcessing:
		return to == DocumentStatusReady || to == DocumentStatusFailed
	case DocumentStatusFailed:
		return to == DocumentStatusPending
	case DocumentStatusReady:
		return to == DocumentStatusPending
	}
	return false
}

// ConversationStatus tracks the lifecycle of a conversation.
type ConversationStatus string

const (
	ConversationStatusActive   ConversationStatus = "active"
	ConversationStatusClosed   ConversationStatus = "closed"
	ConversationStatusArchived ConversationStatus = "archived"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Chunk is a bounded span of a document's text produced by the chunker,
// sized in tokens for downstream embedding. Chunks are immutable once
// produced; Index is 0-based and strictly sequential within a document.
type Chunk struct {
	Content    string
	Index      int
	TokenCount int
	Metadata   map[string]any
}

// Document is a tenant-owned piece of source material. Its raw content is
// kept so that re-ingestion can re-chunk from scratch.
type Document struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Title       string
	SourceURL   string
	SourceType  SourceType
	Status      DocumentStatus
	ContentHash string
	ChunkCount  int
	RawContent  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StoredChunk is a chunk persisted with its embedding vector. It is owned by
// exactly one document and carries the owning tenant for scoped search.
type StoredChunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	TenantID   uuid.UUID
	Content    string
	Index      int
	TokenCount int
	Embedding  []float32
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Conversation is an ordered sequence of messages owned by a tenant.
// MessageCount is monotonic and incremented on every stored message.
// Summary holds the rolling conversation summary; empty means no summary yet.
type Conversation struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ExternalID   string
	Status       ConversationStatus
	Summary      string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AcceptsMessages reports whether new messages may be appended.
// Closed and archived conversations reject new messages.
func (c *Conversation) AcceptsMessages() bool {
	return c.Status == ConversationStatusActive
}

// Message is a single turn in a conversation. Messages are immutable once
// created. Sources and Confidence are populated on assistant messages only.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	TenantID       uuid.UUID
	Role           Role
	Content        string
	Sources        []Source
	Confidence     *float64
	TokenCount     int
	CreatedAt      time.Time
}

// Source is a citation attached to an assistant message, pointing back at the
// chunk that grounded part of the answer.
type Source struct {
	ChunkID    uuid.UUID      `json:"chunk_id"`
	DocumentID uuid.UUID      `json:"document_id"`
	Score      float64        `json:"score"`
	Preview    string         `json:"preview"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RetrievalResult is a single nearest-neighbor hit produced per query.
// Score is a cosine similarity in [0, 1]. Results are ephemeral and may be
// cached briefly keyed by (tenant, query).
type RetrievalResult struct {
	ChunkID    uuid.UUID      `json:"chunk_id"`
	DocumentID uuid.UUID      `json:"document_id"`
	Content    string         `json:"content"`
	Score      float64        `json:"score"`
	TokenCount int            `json:"token_count"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
