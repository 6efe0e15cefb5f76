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


package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/ingest"
	"github.com/poiesic/groundwork/storage"
)

// Config holds configuration for a reindexing run.
type Config struct {
	// BatchSize is the number of documents fetched per storage page.
	BatchSize int

	// ReportInterval is how often to report progress (number of documents).
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
	}
}

// Reindexer drives a tenant's documents back through the ingest pipeline.
type Reindexer struct {
	documents storage.DocumentStore
	pipeline  *ingest.Pipeline
	config    *Config
	progress  io.Writer
}

// NewReindexer creates a reindexer. progress is where progress output is
// written, typically os.Stderr.
func NewReindexer(documents storage.DocumentStore, pipeline *ingest.Pipeline, config *Config, progress io.Writer) *Reindexer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Reindexer{
		documents: documents,
		pipeline:  pipeline,
		config:    config,
		progress:  progress,
	}
}

// Run reindexes every document owned by the tenant. Ready and failed
// documents are reset to pending and re-ingested; documents currently held
// by a worker are left alone. Individual failures do not stop the run.
func (r *Reindexer) Run(ctx context.Context, tenantID uuid.UUID) error {
	// Snapshot the corpus up front so re-ingestion cannot disturb paging.
	docs, err := r.collect(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	total := len(docs)
	if total == 0 {
		fmt.Fprintf(r.progress, "No documents found for tenant (0 documents)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d documents (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	reindexed := 0
	skipped := 0
	failed := 0

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch doc.Status {
		case core.DocumentStatusProcessing:
			// A worker owns it; its chunks are about to be fresh anyway.
			skipped++
			tracker.Increment(1)
			continue
		case core.DocumentStatusReady, core.DocumentStatusFailed:
			if err := r.documents.UpdateDocumentStatus(ctx, tenantID, doc.ID, core.DocumentStatusPending); err != nil {
				failed++
				tracker.Increment(1)
				continue
			}
		}

		if err := r.pipeline.IngestDocument(ctx, tenantID, doc.ID); err != nil {
			failed++
		} else {
			reindexed++
		}
		tracker.Increment(1)
	}

	tracker.Finish()
	fmt.Fprintf(r.progress, "Reindexed %d documents (%d skipped, %d failed) in %s\n",
		reindexed, skipped, failed, tracker.Elapsed().Round(time.Millisecond))

	if failed > 0 {
		return fmt.Errorf("reindex completed with %d failed documents", failed)
	}
	return nil
}

// collect pages through the tenant's documents and returns them all.
func (r *Reindexer) collect(ctx context.Context, tenantID uuid.UUID) ([]*core.Document, error) {
	var all []*core.Document
	for offset := 0; ; offset += r.config.BatchSize {
		page, err := r.documents.ListDocuments(ctx, tenantID, r.config.BatchSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < r.config.BatchSize {
			return all, nil
		}
	}
}
