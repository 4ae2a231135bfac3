package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Record is a single health observation parsed from an export file.
// Records are immutable once parsed and are not persisted directly;
// they only exist as input to the chunking and embedding pipeline.
type Record struct {
	MetricType    string    // Raw metric identifier, e.g. "HKQuantityTypeIdentifierHeartRate"
	Value         string    // Observed value, numeric values kept as exported text
	Unit          string    // Optional unit, e.g. "count/min"
	StartDate     time.Time // Required observation start
	EndDate       time.Time // Defaults to StartDate when the export omits it
	HasEndDate    bool      // True when the export carried an explicit end date
	SourceName    string
	SourceVersion string
	Device        string
	CreationDate  time.Time
}

// Chunk is an ordered, non-empty group of records produced by the chunk
// builder from one input batch. Chunks are ephemeral; they exist only
// while a document is being embedded.
type Chunk struct {
	Index   int
	Records []Record
}

// EmbeddingDocument is the persisted unit of the pipeline: one embedded
// chunk, owned by a single user partition. Documents are created once and
// never mutated in place; regeneration is delete-then-recreate under the
// same deterministic ID.
type EmbeddingDocument struct {
	ID           string    // Deterministic: "{DocumentID}-chunk-{ChunkIndex}"
	OwnerID      string    // Partition key
	DocumentID   string    // Parent import this chunk belongs to
	ChunkIndex   int       // 0-based, contiguous within a document
	ContentChunk string    // Rendered text, newline-joined per-record lines
	Embedding    []float32 // Fixed-length vector, length validated post-call
	Metadata     []byte    // MUS-serialized source records
	Timestamp    time.Time
}

// ScoredDocument pairs a stored document with a similarity score,
// as returned by provider-native vector search.
type ScoredDocument struct {
	Document   *EmbeddingDocument
	Similarity float64
}

// ChunkMatch is a retrieval result: one previously embedded chunk ranked
// against a query. Derived per query, never persisted.
type ChunkMatch struct {
	ID         string
	Content    string
	Similarity float64 // Cosine similarity, 0..1
	Records    []Record
	Timestamp  time.Time
	ChunkIndex int
}

// EmbeddingDocumentID derives the persisted document ID for a chunk.
// It is a pure function of its inputs and doubles as the idempotency key
// for re-processing the same import.
func EmbeddingDocumentID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, chunkIndex)
}

// DocumentIDFromContent generates a deterministic document ID from the
// owner and the raw export content using BLAKE2b hashing. Re-importing
// identical content for the same owner yields the same document ID.
func DocumentIDFromContent(ownerID, content string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(ownerID))
	h.Write([]byte{0})
	h.Write([]byte(content))
	sum := h.Sum(nil)
	return fmt.Sprintf("%016x", binary.LittleEndian.Uint64(sum))
}
