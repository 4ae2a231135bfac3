package retrieval

import (
	"fmt"
	"math"

	"github.com/poiesic/vitalit/core"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 when either vector has zero magnitude. Vectors of unequal
// length are a dimension mismatch.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vectors of length %d and %d", core.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
