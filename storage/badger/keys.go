package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	embeddingDocPrefix = "embdoc"
	blobPrefix         = "blob"
)

// makeDocumentKey generates a key for an embedding document.
// Format: prefix:ownerID:documentID:chunkIndex
// The chunk index is written in BigEndian order so lexicographic
// iteration yields chunks in ascending index order.
func makeDocumentKey(ownerID, documentID string, chunkIndex int) []byte {
	prefix := fmt.Sprintf("%s:%s:%s:", embeddingDocPrefix, ownerID, documentID)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(chunkIndex))
	return buf
}

// makeOwnerPrefix generates the iteration prefix for all of an owner's
// embedding documents.
func makeOwnerPrefix(ownerID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", embeddingDocPrefix, ownerID))
}

// makeDocumentPrefix generates the iteration prefix for one parent
// import's chunks.
func makeDocumentPrefix(ownerID, documentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", embeddingDocPrefix, ownerID, documentID))
}

// makeBlobKey generates a key for a raw export blob.
func makeBlobKey(ownerID, key string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", blobPrefix, ownerID, key))
}
