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


package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// DocumentRepository implements storage.DocumentStore for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentStore = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

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

	return r.backend.WithTx(func(tx *badger.Txn) error {
		hashKey := makeDocumentHashKey(doc.TenantID, doc.ContentHash)
		if _, err := tx.Get(hashKey); err == nil {
			return storage.ErrDuplicateContent
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		value, err := marshalValue(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(makeDocumentKey(doc.TenantID, doc.ID), value); err != nil {
			return err
		}
		if err := tx.Set(hashKey, doc.ID[:]); err != nil {
			return err
		}
		if doc.Status == core.DocumentStatusPending {
			if err := tx.Set(makePendingKey(doc.CreatedAt, doc.ID), pendingRef(doc)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a document by ID within the tenant.
func (r *DocumentRepository) GetDocument(ctx context.Context, tenantID, id uuid.UUID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, makeDocumentKey(tenantID, id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// ListDocuments returns the tenant's documents, newest first.
func (r *DocumentRepository) ListDocuments(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = joinKey([]byte(documentPrefix+":"), tenantID[:])
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc core.Document
			err := iter.Item().Value(func(val []byte) error {
				return unmarshalValue(val, &doc)
			})
			if err != nil {
				return err
			}
			doc.RawContent = ""
			docs = append(docs, &doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(docs, func(a, b *core.Document) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if offset > len(docs) {
		offset = len(docs)
	}
	docs = docs[offset:]
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// ListPendingDocuments returns pending documents across all tenants,
// oldest first.
func (r *DocumentRepository) ListPendingDocuments(ctx context.Context, limit int) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPendPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid() && (limit <= 0 || len(docs) < limit); iter.Next() {
			var ref [32]byte
			err := iter.Item().Value(func(val []byte) error {
				copy(ref[:], val)
				return nil
			})
			if err != nil {
				return err
			}
			tenantID := uuid.UUID(ref[:16])
			docID := uuid.UUID(ref[16:])

			doc, err := readDocument(tx, makeDocumentKey(tenantID, docID))
			if err != nil {
				return err
			}
			// Index entries can outlive a status change within the same
			// iteration window; skip anything no longer pending.
			if doc == nil || doc.Status != core.DocumentStatusPending {
				continue
			}
			docs = append(docs, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateDocumentStatus transitions a document to a new status, maintaining
// the pending index.
func (r *DocumentRepository) UpdateDocumentStatus(ctx context.Context, tenantID, id uuid.UUID, status core.DocumentStatus) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(tenantID, id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		if !doc.Status.CanTransition(status) {
			return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, doc.Status, status)
		}

		if doc.Status == core.DocumentStatusPending && status != core.DocumentStatusPending {
			if err := tx.Delete(makePendingKey(doc.CreatedAt, doc.ID)); err != nil {
				return err
			}
		}
		if doc.Status != core.DocumentStatusPending && status == core.DocumentStatusPending {
			if err := tx.Set(makePendingKey(doc.CreatedAt, doc.ID), pendingRef(doc)); err != nil {
				return err
			}
		}

		doc.Status = status
		doc.UpdatedAt = time.Now().UTC()
		value, err := marshalValue(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FinalizeDocument marks a processing document as ready and records its
// chunk count.
func (r *DocumentRepository) FinalizeDocument(ctx context.Context, tenantID, id uuid.UUID, chunkCount int) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(tenantID, id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		if !doc.Status.CanTransition(core.DocumentStatusReady) {
			return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, doc.Status, core.DocumentStatusReady)
		}

		doc.Status = core.DocumentStatusReady
		doc.ChunkCount = chunkCount
		doc.UpdatedAt = time.Now().UTC()
		value, err := marshalValue(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindDocumentByContentHash looks up a tenant's document by content hash.
func (r *DocumentRepository) FindDocumentByContentHash(ctx context.Context, tenantID uuid.UUID, hash string) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentHashKey(tenantID, hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var id uuid.UUID
		if err := item.Value(func(val []byte) error {
			copy(id[:], val)
			return nil
		}); err != nil {
			return err
		}
		doc, err = readDocument(tx, makeDocumentKey(tenantID, id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// DeleteDocument removes a document, its indexes, and all of its chunks.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(tenantID, id)
		doc, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentHashKey(tenantID, doc.ContentHash)); err != nil {
			return err
		}
		if doc.Status == core.DocumentStatusPending {
			if err := tx.Delete(makePendingKey(doc.CreatedAt, doc.ID)); err != nil {
				return err
			}
		}

		// Collect chunk keys first; deleting under an open iterator is
		// not allowed.
		var chunkKeys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkDocPrefix(tenantID, id)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			chunkKeys = append(chunkKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, ck := range chunkKeys {
			if err := tx.Delete(ck); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// readDocument reads a document by key, returning nil if it doesn't exist.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc core.Document
	if err := item.Value(func(val []byte) error {
		return unmarshalValue(val, &doc)
	}); err != nil {
		return nil, err
	}
	return &doc, nil
}

// pendingRef packs tenant and document IDs into the pending index value.
func pendingRef(doc *core.Document) []byte {
	ref := make([]byte, 0, 32)
	ref = append(ref, doc.TenantID[:]...)
	ref = append(ref, doc.ID[:]...)
	return ref
}
