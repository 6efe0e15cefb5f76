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


package groundwork

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/ai/mock"
	"github.com/poiesic/groundwork/ai/openai"
	"github.com/poiesic/groundwork/cache"
	cachebadger "github.com/poiesic/groundwork/cache/badger"
	"github.com/poiesic/groundwork/chunker"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/engine"
	"github.com/poiesic/groundwork/ingest"
	"github.com/poiesic/groundwork/queue"
	qmemory "github.com/poiesic/groundwork/queue/memory"
	"github.com/poiesic/groundwork/reindex"
	"github.com/poiesic/groundwork/retriever"
	"github.com/poiesic/groundwork/storage"
	storebadger "github.com/poiesic/groundwork/storage/badger"
	"github.com/poiesic/groundwork/storage/postgres"
	"github.com/poiesic/groundwork/worker"
)

// System wires storage, cache, queue, and the AI provider into one unit
// and hands out the pipeline components built on top of them.
type System struct {
	store       storage.Store
	cache       cache.Cache
	queue       queue.Queue
	provider    ai.Provider
	countTokens func(string) int
	logger      *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig      *ai.Config
	databaseURL   string
	cachePath     string
	queueCapacity int
}

// WithAIConfig sets the AI provider configuration. Without a real API key
// the deterministic stub provider is used.
func WithAIConfig(cfg *ai.Config) SystemOption {
	return func(o *systemOptions) {
		o.aiConfig = cfg
	}
}

// WithPostgres stores documents, chunks, and conversations in PostgreSQL
// with pgvector instead of the embedded Badger store.
func WithPostgres(databaseURL string) SystemOption {
	return func(o *systemOptions) {
		o.databaseURL = databaseURL
	}
}

// WithCachePath persists the retrieval cache at the given path. Empty keeps
// the cache in memory.
func WithCachePath(path string) SystemOption {
	return func(o *systemOptions) {
		o.cachePath = path
	}
}

// WithQueueCapacity sets the ingestion queue buffer size.
func WithQueueCapacity(n int) SystemOption {
	return func(o *systemOptions) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// NewSystem opens storage at storePath and assembles the shared services.
// An empty storePath (without WithPostgres) selects an in-memory store,
// useful for tests and local experiments.
func NewSystem(ctx context.Context, storePath string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig:      ai.DefaultConfig(),
		queueCapacity: 256,
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.aiConfig.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	if options.databaseURL != "" {
		store, err = postgres.Open(ctx, options.databaseURL,
			postgres.WithVectorDim(options.aiConfig.EmbeddingDimensions))
	} else {
		store, err = storebadger.Open(storePath, storePath == "")
	}
	if err != nil {
		return nil, err
	}

	retrievalCache, err := cachebadger.Open(options.cachePath, options.cachePath == "")
	if err != nil {
		store.Close()
		return nil, err
	}

	var provider ai.Provider
	if options.aiConfig.MockMode() {
		provider = mock.NewProvider(options.aiConfig)
	} else {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			retrievalCache.Close()
			store.Close()
			return nil, err
		}
	}

	// Token counting degrades to word counts when the encoding for the
	// configured model cannot be loaded.
	var countTokens func(string) int
	if counter, err := ai.NewTokenCounter(options.aiConfig.ChatModel); err == nil {
		countTokens = counter.CountTokens
	} else {
		slog.Warn("token encoding unavailable, using word counts", "error", err)
	}

	return &System{
		store:       store,
		cache:       retrievalCache,
		queue:       qmemory.New(options.queueCapacity),
		provider:    provider,
		countTokens: countTokens,
		logger:      slog.Default(),
	}, nil
}

// Close releases the provider, cache, queue, and store in order.
func (s *System) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.queue.Close(); err != nil {
		s.logger.Error("error closing job queue", "err", err)
	}
	if err := s.cache.Close(); err != nil {
		s.logger.Error("error closing retrieval cache", "err", err)
		return err
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

// Store exposes the underlying persistence layer.
func (s *System) Store() storage.Store {
	return s.store
}

// Queue exposes the ingestion job queue.
func (s *System) Queue() queue.Queue {
	return s.queue
}

// Provider exposes the configured AI provider.
func (s *System) Provider() ai.Provider {
	return s.provider
}

// CreateDocument validates and stores a document, then queues it for
// ingestion. Duplicate content within a tenant surfaces as
// storage.ErrDuplicateContent.
func (s *System) CreateDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	if err := s.store.Documents().CreateDocument(ctx, doc); err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, queue.Job{DocumentID: doc.ID, TenantID: doc.TenantID})
}

// DeleteDocument removes a document and its chunks.
func (s *System) DeleteDocument(ctx context.Context, tenantID, documentID uuid.UUID) error {
	return s.store.Documents().DeleteDocument(ctx, tenantID, documentID)
}

// NewChunker builds a chunker using the system token counter.
func (s *System) NewChunker(opts ...chunker.Option) *chunker.Chunker {
	return chunker.New(s.countTokens, opts...)
}

// NewRetriever builds a retriever backed by the system cache. Options are
// applied after the cache wiring and may override it.
func (s *System) NewRetriever(opts ...retriever.Option) *retriever.Retriever {
	combined := append([]retriever.Option{retriever.WithCache(s.cache)}, opts...)
	return retriever.New(s.provider.Embedder(), s.store.Chunks(), combined...)
}

// NewEngine builds a conversation engine on a default retriever.
func (s *System) NewEngine(opts ...engine.Option) *engine.Engine {
	return engine.New(
		s.store.Conversations(),
		s.store.Messages(),
		s.NewRetriever(),
		s.provider.Completer(),
		s.countTokens,
		opts...,
	)
}

// NewPipeline builds an ingestion pipeline.
func (s *System) NewPipeline(opts ...ingest.Option) *ingest.Pipeline {
	return ingest.New(s.store.Documents(), s.store.Chunks(), s.NewChunker(), s.provider.Embedder(), opts...)
}

// NewWorker builds a queue worker around a default pipeline.
func (s *System) NewWorker(opts ...worker.Option) *worker.Worker {
	return worker.New(s.queue, s.NewPipeline(), s.store.Documents(), opts...)
}

// NewReindexer builds a reindexer over a default pipeline. Progress output
// goes to progress; a nil config uses the defaults.
func (s *System) NewReindexer(config *reindex.Config, progress io.Writer) *reindex.Reindexer {
	return reindex.NewReindexer(s.store.Documents(), s.NewPipeline(), config, progress)
}

// NewDispatcher builds a dispatcher that feeds pending documents to the
// queue.
func (s *System) NewDispatcher(opts ...worker.DispatcherOption) *worker.Dispatcher {
	return worker.NewDispatcher(s.store.Documents(), s.queue, opts...)
}
