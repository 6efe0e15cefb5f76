package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

const documentColumns = `id, tenant_id, title, source_url, source_type, status,
	content_hash, chunk_count, raw_content, created_at, updated_at`

// DocumentRepository implements storage.DocumentStore for PostgreSQL.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

var _ storage.DocumentStore = (*DocumentRepository)(nil)

// CreateDocument persists a new document in the pending state.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *core.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = core.DocumentStatusPending
	}
	if doc.ContentHash == "" {
		doc.ContentHash = core.HashContent(doc.RawContent)
	}
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt

	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (id, tenant_id, title, source_url, source_type,
			status, content_hash, chunk_count, raw_content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		doc.ID, doc.TenantID, doc.Title, doc.SourceURL, doc.SourceType,
		doc.Status, doc.ContentHash, doc.ChunkCount, doc.RawContent,
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrDuplicateContent
		}
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID within the tenant.
func (r *DocumentRepository) GetDocument(ctx context.Context, tenantID, id uuid.UUID) (*core.Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	return scanDocument(row)
}

// ListDocuments returns the tenant's documents, newest first, without raw
// content.
func (r *DocumentRepository) ListDocuments(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*core.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, title, source_url, source_type, status,
			content_hash, chunk_count, '' AS raw_content, created_at, updated_at
		FROM documents
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// ListPendingDocuments returns pending documents across all tenants,
// oldest first.
func (r *DocumentRepository) ListPendingDocuments(ctx context.Context, limit int) ([]*core.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		core.DocumentStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// UpdateDocumentStatus transitions a document to a new status.
func (r *DocumentRepository) UpdateDocumentStatus(ctx context.Context, tenantID, id uuid.UUID, status core.DocumentStatus) error {
	return r.transition(ctx, tenantID, id, status, nil)
}

// FinalizeDocument marks a processing document as ready and records its
// chunk count.
func (r *DocumentRepository) FinalizeDocument(ctx context.Context, tenantID, id uuid.UUID, chunkCount int) error {
	return r.transition(ctx, tenantID, id, core.DocumentStatusReady, &chunkCount)
}

// transition validates and applies a status change inside a transaction.
// The row is locked so concurrent workers cannot race the same document.
func (r *DocumentRepository) transition(ctx context.Context, tenantID, id uuid.UUID, status core.DocumentStatus, chunkCount *int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current core.DocumentStatus
	err = tx.QueryRow(ctx, `
		SELECT status FROM documents
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`,
		tenantID, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("locking document: %w", err)
	}
	if !current.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, current, status)
	}

	if chunkCount != nil {
		_, err = tx.Exec(ctx, `
			UPDATE documents
			SET status = $3, chunk_count = $4, updated_at = $5
			WHERE tenant_id = $1 AND id = $2`,
			tenantID, id, status, *chunkCount, time.Now().UTC())
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE documents
			SET status = $3, updated_at = $4
			WHERE tenant_id = $1 AND id = $2`,
			tenantID, id, status, time.Now().UTC())
	}
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	return tx.Commit(ctx)
}

// FindDocumentByContentHash looks up a tenant's document by content hash.
func (r *DocumentRepository) FindDocumentByContentHash(ctx context.Context, tenantID uuid.UUID, hash string) (*core.Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE tenant_id = $1 AND content_hash = $2`,
		tenantID, hash)
	return scanDocument(row)
}

// DeleteDocument removes a document; chunks cascade.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM documents
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*core.Document, error) {
	var doc core.Document
	err := row.Scan(&doc.ID, &doc.TenantID, &doc.Title, &doc.SourceURL,
		&doc.SourceType, &doc.Status, &doc.ContentHash, &doc.ChunkCount,
		&doc.RawContent, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

func scanDocuments(rows pgx.Rows) ([]*core.Document, error) {
	var docs []*core.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}
