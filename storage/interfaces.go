package storage

import (
	"context"

	"github.com/poiesic/vitalit/core"
)

// QueryOptions narrows a partition query.
type QueryOptions struct {
	// DocumentID restricts results to chunks of one parent import.
	// Empty means all of the owner's documents.
	DocumentID string

	// Limit caps the number of returned documents. Zero means no limit.
	Limit int
}

// VectorStore persists and queries embedding documents by owner partition.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// Create persists a new embedding document and returns it.
	// The document ID is caller-assigned and deterministic; creating an
	// ID that already exists returns ErrDuplicateKey.
	Create(ctx context.Context, doc *core.EmbeddingDocument) (*core.EmbeddingDocument, error)

	// DeleteByOwner removes embedding documents for an owner. A non-empty
	// documentID restricts deletion to one parent import; empty deletes
	// every document the owner has. Deleting nothing is not an error.
	DeleteByOwner(ctx context.Context, ownerID, documentID string) error

	// QueryByPartition fetches embedding documents for an owner, ordered
	// by document ID and chunk index.
	QueryByPartition(ctx context.Context, ownerID string, opts QueryOptions) ([]*core.EmbeddingDocument, error)

	// SearchByVector performs provider-native vector search scoped to the
	// owner partition, returning up to limit documents ranked by
	// similarity. Backends without native search return an empty slice;
	// that is a valid outcome, not an error, and callers are expected to
	// fall back to client-side scoring.
	SearchByVector(ctx context.Context, ownerID string, vector []float32, limit int) ([]*core.ScoredDocument, error)

	// Close closes the store and releases resources.
	Close() error
}

// BlobStore persists raw export blobs by owner partition and key. The
// import job uses it to retain the original export alongside the derived
// embeddings, and to compensate (delete the blob) when the paired
// embedding run fails.
type BlobStore interface {
	// Put stores a blob under the owner partition and key, overwriting
	// any existing blob with the same key.
	Put(ctx context.Context, ownerID, key string, data []byte) error

	// Get retrieves a blob. Returns ErrNotFound if absent.
	Get(ctx context.Context, ownerID, key string) ([]byte, error)

	// Delete removes a blob. Deleting an absent blob is not an error.
	Delete(ctx context.Context, ownerID, key string) error

	// Close closes the store and releases resources.
	Close() error
}
