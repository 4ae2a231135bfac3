package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingDocumentID(t *testing.T) {
	tests := []struct {
		name       string
		documentID string
		chunkIndex int
		expected   string
	}{
		{
			name:       "first chunk",
			documentID: "abc123",
			chunkIndex: 0,
			expected:   "abc123-chunk-0",
		},
		{
			name:       "later chunk",
			documentID: "abc123",
			chunkIndex: 17,
			expected:   "abc123-chunk-17",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EmbeddingDocumentID(tt.documentID, tt.chunkIndex))
		})
	}
}

func TestEmbeddingDocumentID_Idempotent(t *testing.T) {
	first := EmbeddingDocumentID("doc", 3)
	second := EmbeddingDocumentID("doc", 3)
	assert.Equal(t, first, second, "same inputs must yield the same ID")
}

func TestDocumentIDFromContent(t *testing.T) {
	a := DocumentIDFromContent("user-1", "export contents")
	b := DocumentIDFromContent("user-1", "export contents")
	c := DocumentIDFromContent("user-2", "export contents")
	d := DocumentIDFromContent("user-1", "different contents")

	assert.Equal(t, a, b, "identical owner and content must produce identical IDs")
	assert.NotEqual(t, a, c, "different owners must produce different IDs")
	assert.NotEqual(t, a, d, "different content must produce different IDs")
	assert.Len(t, a, 16)
}
