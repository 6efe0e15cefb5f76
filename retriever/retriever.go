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


package retriever

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/cache"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

const (
	// DefaultTopK is the maximum number of chunks returned per query.
	DefaultTopK = 5
	// DefaultThreshold is the minimum cosine similarity for a chunk to be
	// considered relevant.
	DefaultThreshold = 0.7
	// DefaultCacheTTL bounds how stale a cached result set can get.
	DefaultCacheTTL = 60 * time.Second
)

// Retriever embeds queries and searches the tenant's chunks.
type Retriever struct {
	embedder  ai.Embedder
	chunks    storage.ChunkStore
	cache     cache.Cache
	topK      int
	threshold float64
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTopK sets the maximum number of results.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithThreshold sets the minimum similarity score.
func WithThreshold(threshold float64) Option {
	return func(r *Retriever) {
		r.threshold = threshold
	}
}

// WithCache enables result caching. Without a cache every query embeds and
// searches.
func WithCache(c cache.Cache) Option {
	return func(r *Retriever) {
		r.cache = c
	}
}

// WithCacheTTL sets the cache entry lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Retriever) {
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// New creates a Retriever.
func New(embedder ai.Embedder, chunks storage.ChunkStore, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:  embedder,
		chunks:    chunks,
		topK:      DefaultTopK,
		threshold: DefaultThreshold,
		cacheTTL:  DefaultCacheTTL,
		logger:    slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns the tenant's chunks most similar to the query, best
// first. Results below the similarity threshold are excluded; an empty
// result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, tenantID uuid.UUID, query string) ([]*core.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	key := cacheKey(tenantID, query)
	if cached := r.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.chunks.SearchSimilar(ctx, tenantID, vector, r.threshold, r.topK)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	// Empty result sets are not cached: the tenant may be mid-ingestion,
	// and a cached miss would hide fresh chunks for the full TTL.
	if len(results) > 0 {
		r.toCache(ctx, key, results)
	}

	return results, nil
}

func (r *Retriever) fromCache(ctx context.Context, key string) []*core.RetrievalResult {
	if r.cache == nil {
		return nil
	}
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			r.logger.Warn("cache get failed", "error", err)
		}
		return nil
	}
	var results []*core.RetrievalResult
	if err := json.Unmarshal(data, &results); err != nil {
		r.logger.Warn("cache entry corrupt", "error", err)
		return nil
	}
	return results
}

func (r *Retriever) toCache(ctx context.Context, key string, results []*core.RetrievalResult) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		r.logger.Warn("cache marshal failed", "error", err)
		return
	}
	if err := r.cache.Set(ctx, key, data, r.cacheTTL); err != nil {
		r.logger.Warn("cache set failed", "error", err)
	}
}

// cacheKey scopes cached results to the tenant. Two tenants asking the
// same question never share an entry.
func cacheKey(tenantID uuid.UUID, query string) string {
	return fmt.Sprintf("retrieval:%s:%s", tenantID, core.HashContent(query))
}
