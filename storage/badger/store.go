package badger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vitalit/core"
	"github.com/poiesic/vitalit/storage"
)

// VectorStore is a BadgerDB-backed implementation of storage.VectorStore.
//
// BadgerDB has no native vector search, so SearchByVector always reports
// no results; retrieval falls back to client-side cosine scoring over
// QueryByPartition.
type VectorStore struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates an embedding document store on the given backend.
func NewVectorStore(backend *Backend) (storage.VectorStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &VectorStore{
		backend: backend,
		logger:  slog.Default().With("component", "badger-vector-store"),
	}, nil
}

// Create persists a new embedding document.
func (s *VectorStore) Create(ctx context.Context, doc *core.EmbeddingDocument) (*core.EmbeddingDocument, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	key := makeDocumentKey(doc.OwnerID, doc.DocumentID, doc.ChunkIndex)

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, doc.ID)
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		bs := make([]byte, core.EmbeddingDocumentMUS.Size(*doc))
		core.EmbeddingDocumentMUS.Marshal(*doc, bs)
		return tx.Set(key, bs)
	}, true)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("created embedding document", "id", doc.ID, "owner", doc.OwnerID)
	return doc, nil
}

// DeleteByOwner removes documents for an owner, optionally scoped to one
// parent import.
func (s *VectorStore) DeleteByOwner(ctx context.Context, ownerID, documentID string) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	prefix := makeOwnerPrefix(ownerID)
	if documentID != "" {
		prefix = makeDocumentPrefix(ownerID, documentID)
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// QueryByPartition fetches an owner's documents in key order, i.e. by
// document ID then ascending chunk index.
func (s *VectorStore) QueryByPartition(ctx context.Context, ownerID string, queryOpts storage.QueryOptions) ([]*core.EmbeddingDocument, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	prefix := makeOwnerPrefix(ownerID)
	if queryOpts.DocumentID != "" {
		prefix = makeDocumentPrefix(ownerID, queryOpts.DocumentID)
	}

	var docs []*core.EmbeddingDocument
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if queryOpts.Limit > 0 && len(docs) >= queryOpts.Limit {
				break
			}
			err := iter.Item().Value(func(val []byte) error {
				doc, _, err := core.EmbeddingDocumentMUS.Unmarshal(val)
				if err != nil {
					return fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
				}
				docs = append(docs, &doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// SearchByVector reports no results; BadgerDB has no native vector index.
func (s *VectorStore) SearchByVector(ctx context.Context, ownerID string, vector []float32, limit int) ([]*core.ScoredDocument, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return []*core.ScoredDocument{}, nil
}

// Close releases store resources. The shared backend is owned by the
// caller and closed separately.
func (s *VectorStore) Close() error {
	return nil
}
