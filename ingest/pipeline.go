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


package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/chunker"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

const (
	// DefaultEmbedBatchSize is the number of chunk texts per embedding
	// request.
	DefaultEmbedBatchSize = 128
	// DefaultParallelism bounds concurrent embedding requests per document.
	DefaultParallelism = 4
)

// Pipeline ingests documents into searchable chunks.
type Pipeline struct {
	documents      storage.DocumentStore
	chunks         storage.ChunkStore
	chunker        *chunker.Chunker
	embedder       ai.Embedder
	embedBatchSize int
	parallelism    int
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEmbedBatchSize sets the chunk texts per embedding request.
func WithEmbedBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.embedBatchSize = n
		}
	}
}

// WithParallelism bounds concurrent embedding requests.
func WithParallelism(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.parallelism = n
		}
	}
}

// New creates a Pipeline.
func New(
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	c *chunker.Chunker,
	embedder ai.Embedder,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		documents:      documents,
		chunks:         chunks,
		chunker:        c,
		embedder:       embedder,
		embedBatchSize: DefaultEmbedBatchSize,
		parallelism:    DefaultParallelism,
		logger:         slog.Default().With("component", "ingest"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestDocument processes a single document end to end. Documents already
// in the ready state are skipped, which makes redelivered jobs harmless.
func (p *Pipeline) IngestDocument(ctx context.Context, tenantID, documentID uuid.UUID) error {
	doc, err := p.documents.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}

	if doc.Status == core.DocumentStatusReady {
		p.logger.Debug("document already ready, skipping",
			"document_id", documentID)
		return nil
	}

	if err := p.documents.UpdateDocumentStatus(ctx, tenantID, documentID, core.DocumentStatusProcessing); err != nil {
		return fmt.Errorf("claiming document: %w", err)
	}

	if err := p.process(ctx, doc); err != nil {
		p.markFailed(ctx, tenantID, documentID)
		return err
	}
	return nil
}

func (p *Pipeline) process(ctx context.Context, doc *core.Document) error {
	chunks, err := p.chunker.Chunk(doc.SourceType, doc.RawContent)
	if err != nil {
		return fmt.Errorf("chunking document: %w", err)
	}
	if len(chunks) == 0 {
		return core.ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := p.embedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	stored := make([]*core.StoredChunk, len(chunks))
	for i, chunk := range chunks {
		stored[i] = &core.StoredChunk{
			Content:    chunk.Content,
			Index:      chunk.Index,
			TokenCount: chunk.TokenCount,
			Embedding:  vectors[i],
			Metadata:   chunk.Metadata,
		}
	}

	if err := p.chunks.ReplaceChunks(ctx, doc.TenantID, doc.ID, stored); err != nil {
		return fmt.Errorf("storing chunks: %w", err)
	}

	if err := p.documents.FinalizeDocument(ctx, doc.TenantID, doc.ID, len(stored)); err != nil {
		return fmt.Errorf("finalizing document: %w", err)
	}

	p.logger.Info("document ingested",
		"document_id", doc.ID,
		"chunks", len(stored))
	return nil
}

// embedAll embeds texts in parallel sub-batches, preserving input order.
func (p *Pipeline) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) <= p.embedBatchSize {
		return p.embedder.EmbedTexts(ctx, texts)
	}

	var batches [][]string
	for start := 0; start < len(texts); start += p.embedBatchSize {
		end := start + p.embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[start:end])
	}

	pool, err := ants.NewPool(p.parallelism)
	if err != nil {
		return nil, fmt.Errorf("creating embed pool: %w", err)
	}
	defer pool.Release()

	results := make([][][]float32, len(batches))
	errs := make([]error, len(batches))
	var wg sync.WaitGroup

	for i, batch := range batches {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = p.embedder.EmbedTexts(ctx, batch)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(texts))
	for _, batch := range results {
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// markFailed parks the document in the failed state. The original error is
// what the caller reports; a failure here only gets logged.
func (p *Pipeline) markFailed(ctx context.Context, tenantID, documentID uuid.UUID) {
	if err := p.documents.UpdateDocumentStatus(ctx, tenantID, documentID, core.DocumentStatusFailed); err != nil {
		p.logger.Error("marking document failed",
			"document_id", documentID,
			"error", err)
	}
}
