package badger

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// ChunkRepository implements storage.ChunkStore for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkStore = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// ReplaceChunks atomically replaces all chunks of a document.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, tenantID, documentID uuid.UUID, chunks []*core.StoredChunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		var oldKeys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkDocPrefix(tenantID, documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			oldKeys = append(oldKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range oldKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		for _, chunk := range chunks {
			if chunk.ID == uuid.Nil {
				chunk.ID = uuid.New()
			}
			chunk.TenantID = tenantID
			chunk.DocumentID = documentID
			chunk.CreatedAt = now

			value, err := marshalValue(chunk)
			if err != nil {
				return err
			}
			if err := tx.Set(makeChunkKey(tenantID, documentID, chunk.Index), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// SearchSimilar scans the tenant's chunks and returns those whose cosine
// similarity to vector meets the threshold, best first.
func (r *ChunkRepository) SearchSimilar(ctx context.Context, tenantID uuid.UUID, vector []float32, threshold float64, topK int) ([]*core.RetrievalResult, error) {
	var results []*core.RetrievalResult

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkTenantPrefix(tenantID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk core.StoredChunk
			err := iter.Item().Value(func(val []byte) error {
				return unmarshalValue(val, &chunk)
			})
			if err != nil {
				return err
			}
			if len(chunk.Embedding) == 0 {
				continue
			}

			score := cosineSimilarity(vector, chunk.Embedding)
			if score < threshold {
				continue
			}
			results = append(results, &core.RetrievalResult{
				ChunkID:    chunk.ID,
				DocumentID: chunk.DocumentID,
				Content:    chunk.Content,
				Score:      score,
				TokenCount: chunk.TokenCount,
				Metadata:   chunk.Metadata,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.RetrievalResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// CountChunks returns the number of stored chunks for a document.
func (r *ChunkRepository) CountChunks(ctx context.Context, tenantID, documentID uuid.UUID) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkDocPrefix(tenantID, documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// cosineSimilarity computes the cosine similarity of two vectors. Stored
// embeddings are unit length in practice, but the full formula keeps the
// scan correct for arbitrary inputs.
func cosineSimilarity(a, b []float32) float64 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < minLen; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
