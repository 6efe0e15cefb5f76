// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poiesic/groundwork/storage"
)

// DefaultVectorDim matches text-embedding-3-small.
const DefaultVectorDim = 1536

// Store aggregates the PostgreSQL repositories behind storage.Store.
type Store struct {
	pool          *pgxpool.Pool
	documents     *DocumentRepository
	chunks        *ChunkRepository
	conversations *ConversationRepository
	messages      *MessageRepository
	logger        *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*openConfig)

type openConfig struct {
	vectorDim int
}

// WithVectorDim sets the embedding column width. Must match the embedding
// model in use; defaults to DefaultVectorDim.
func WithVectorDim(dim int) Option {
	return func(c *openConfig) {
		if dim > 0 {
			c.vectorDim = dim
		}
	}
}

// Open connects to PostgreSQL and ensures the schema exists.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	cfg := &openConfig{vectorDim: DefaultVectorDim}
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	store := &Store{
		pool:          pool,
		documents:     &DocumentRepository{pool: pool},
		chunks:        &ChunkRepository{pool: pool},
		conversations: &ConversationRepository{pool: pool},
		messages:      &MessageRepository{pool: pool},
		logger:        slog.Default().With("component", "postgres-store"),
	}
	if err := store.initSchema(ctx, cfg.vectorDim); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context, vectorDim int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			source_type TEXT NOT NULL,
			status TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			raw_content TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (tenant_id, content_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS documents_tenant_idx
			ON documents (tenant_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS documents_status_idx
			ON documents (status, created_at)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			tenant_id UUID NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			token_count INTEGER NOT NULL DEFAULT 0,
			embedding vector(%d),
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`, vectorDim),
		`CREATE INDEX IF NOT EXISTS chunks_tenant_idx
			ON chunks (tenant_id, document_id)`,
		`CREATE INDEX IF NOT EXISTS chunks_embedding_idx
			ON chunks USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = 100)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			external_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			message_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS conversations_tenant_idx
			ON conversations (tenant_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			tenant_id UUID NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			sources JSONB,
			confidence DOUBLE PRECISION,
			token_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_conversation_idx
			ON messages (conversation_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}

// Documents returns the document store.
func (s *Store) Documents() storage.DocumentStore {
	return s.documents
}

// Chunks returns the chunk store.
func (s *Store) Chunks() storage.ChunkStore {
	return s.chunks
}

// Conversations returns the conversation store.
func (s *Store) Conversations() storage.ConversationStore {
	return s.conversations
}

// Messages returns the message store.
func (s *Store) Messages() storage.MessageStore {
	return s.messages
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
