package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// ChunkRepository implements storage.ChunkStore for PostgreSQL.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

var _ storage.ChunkStore = (*ChunkRepository)(nil)

// ReplaceChunks atomically replaces all chunks of a document.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, tenantID, documentID uuid.UUID, chunks []*core.StoredChunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM chunks
		WHERE tenant_id = $1 AND document_id = $2`,
		tenantID, documentID)
	if err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	now := time.Now().UTC()
	for _, chunk := range chunks {
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}
		chunk.TenantID = tenantID
		chunk.DocumentID = documentID
		chunk.CreatedAt = now

		metadata, err := marshalMetadata(chunk.Metadata)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO chunks (id, document_id, tenant_id, content, chunk_index,
				token_count, embedding, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			chunk.ID, documentID, tenantID, chunk.Content, chunk.Index,
			chunk.TokenCount, pgvector.NewVector(chunk.Embedding), metadata, now)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", chunk.Index, err)
		}
	}
	return tx.Commit(ctx)
}

// SearchSimilar runs a cosine search over the tenant's chunks in SQL.
// The <=> operator is cosine distance, so similarity is 1 - distance.
func (r *ChunkRepository) SearchSimilar(ctx context.Context, tenantID uuid.UUID, vector []float32, threshold float64, topK int) ([]*core.RetrievalResult, error) {
	if topK <= 0 {
		topK = 5
	}
	query := pgvector.NewVector(vector)

	rows, err := r.pool.Query(ctx, `
		SELECT id, document_id, content, token_count, metadata,
			1 - (embedding <=> $2) AS score
		FROM chunks
		WHERE tenant_id = $1 AND 1 - (embedding <=> $2) >= $3
		ORDER BY embedding <=> $2
		LIMIT $4`,
		tenantID, query, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var results []*core.RetrievalResult
	for rows.Next() {
		var (
			result   core.RetrievalResult
			metadata []byte
		)
		err := rows.Scan(&result.ChunkID, &result.DocumentID, &result.Content,
			&result.TokenCount, &metadata, &result.Score)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		if result.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

// CountChunks returns the number of stored chunks for a document.
func (r *ChunkRepository) CountChunks(ctx context.Context, tenantID, documentID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM chunks
		WHERE tenant_id = $1 AND document_id = $2`,
		tenantID, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshalMetadata(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
	}
	return metadata, nil
}
