package badger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vitalit/storage"
)

// BlobStore is a BadgerDB-backed implementation of storage.BlobStore.
type BlobStore struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates a raw export blob store on the given backend.
func NewBlobStore(backend *Backend) (storage.BlobStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &BlobStore{
		backend: backend,
		logger:  slog.Default().With("component", "badger-blob-store"),
	}, nil
}

// Put stores a blob, overwriting any existing blob with the same key.
func (s *BlobStore) Put(ctx context.Context, ownerID, key string, data []byte) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(makeBlobKey(ownerID, key), data)
	}, true)
}

// Get retrieves a blob.
func (s *BlobStore) Get(ctx context.Context, ownerID, key string) ([]byte, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var data []byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeBlobKey(ownerID, key))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: blob %s", storage.ErrNotFound, key)
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes a blob. Absent blobs are ignored.
func (s *BlobStore) Delete(ctx context.Context, ownerID, key string) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Delete(makeBlobKey(ownerID, key))
	}, true)
}

// Close releases store resources. The shared backend is owned by the
// caller and closed separately.
func (s *BlobStore) Close() error {
	return nil
}
