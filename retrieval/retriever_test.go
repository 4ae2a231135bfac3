package retrieval

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/poiesic/vitalit/ai/mock"
	"github.com/poiesic/vitalit/core"
	"github.com/poiesic/vitalit/storage"
	badgerstore "github.com/poiesic/vitalit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryAxis is the fixed query embedding the mock returns. Stored vectors
// are placed on the unit circle so their cosine against it is exact.
var queryAxis = []float32{1, 0}

func axisEmbedder() *mock.MockEmbedder {
	return &mock.MockEmbedder{
		Dim: 2,
		EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
			return queryAxis, nil
		},
	}
}

// vectorAt returns a unit vector whose cosine similarity to queryAxis is
// exactly cos.
func vectorAt(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func storeChunk(t *testing.T, store storage.VectorStore, ownerID string, chunkIndex int, cos float64, records []core.Record) {
	t.Helper()

	var metadata []byte
	if len(records) > 0 {
		metadata = make([]byte, core.RecordSliceMUS.Size(records))
		core.RecordSliceMUS.Marshal(records, metadata)
	}

	_, err := store.Create(context.Background(), &core.EmbeddingDocument{
		ID:           core.EmbeddingDocumentID("doc-a", chunkIndex),
		OwnerID:      ownerID,
		DocumentID:   "doc-a",
		ChunkIndex:   chunkIndex,
		ContentChunk: "chunk content",
		Embedding:    vectorAt(cos),
		Metadata:     metadata,
		Timestamp:    time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
}

func setupRetriever(t *testing.T) (*Retriever, storage.VectorStore) {
	t.Helper()
	store, _, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	retriever, err := NewRetriever(store, axisEmbedder())
	require.NoError(t, err)
	return retriever, store
}

func TestRetriever_ThresholdAndLimit(t *testing.T) {
	retriever, store := setupRetriever(t)
	ctx := context.Background()

	// Badger has no native search, so this exercises the fallback path.
	for i, cos := range []float64{0.9, 0.7, 0.6, 0.4, 0.3} {
		storeChunk(t, store, "user-1", i, cos, nil)
	}

	matches, err := retriever.Search(ctx, "user-1", "how is my heart rate", Options{Limit: 2})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.InDelta(t, 0.9, matches[0].Similarity, 1e-6)
	assert.InDelta(t, 0.7, matches[1].Similarity, 1e-6)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity, "descending order")
}

func TestRetriever_NothingClearsThreshold(t *testing.T) {
	retriever, store := setupRetriever(t)
	ctx := context.Background()

	storeChunk(t, store, "user-1", 0, 0.2, nil)
	storeChunk(t, store, "user-1", 1, 0.4, nil)

	matches, err := retriever.Search(ctx, "user-1", "anything", Options{})
	require.NoError(t, err)
	assert.Empty(t, matches, "an empty result is valid, not an error")
}

func TestRetriever_EmptyPartition(t *testing.T) {
	retriever, _ := setupRetriever(t)

	matches, err := retriever.Search(context.Background(), "user-absent", "anything", Options{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRetriever_MetricTypeFilter(t *testing.T) {
	retriever, store := setupRetriever(t)
	ctx := context.Background()

	heart := []core.Record{{
		MetricType: "HKQuantityTypeIdentifierHeartRate",
		Value:      "72",
		StartDate:  time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
	}}
	steps := []core.Record{{
		MetricType: "HKQuantityTypeIdentifierStepCount",
		Value:      "1000",
		StartDate:  time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC),
	}}
	storeChunk(t, store, "user-1", 0, 0.9, heart)
	storeChunk(t, store, "user-1", 1, 0.8, steps)

	t.Run("raw identifier", func(t *testing.T) {
		matches, err := retriever.Search(ctx, "user-1", "heart", Options{
			MetricTypes: []string{"HKQuantityTypeIdentifierHeartRate"},
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, 0, matches[0].ChunkIndex)
	})

	t.Run("display name", func(t *testing.T) {
		matches, err := retriever.Search(ctx, "user-1", "steps", Options{
			MetricTypes: []string{"Step Count"},
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, 1, matches[0].ChunkIndex)
	})
}

func TestRetriever_TimeRangeFilter(t *testing.T) {
	retriever, store := setupRetriever(t)
	ctx := context.Background()

	march := []core.Record{{
		MetricType: "HKQuantityTypeIdentifierHeartRate",
		Value:      "72",
		StartDate:  time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
	}}
	june := []core.Record{{
		MetricType: "HKQuantityTypeIdentifierHeartRate",
		Value:      "80",
		StartDate:  time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}}
	storeChunk(t, store, "user-1", 0, 0.9, march)
	storeChunk(t, store, "user-1", 1, 0.8, june)

	matches, err := retriever.Search(ctx, "user-1", "heart", Options{
		TimeRangeStart: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].ChunkIndex)
}

func TestRetriever_DecodesRecordsIntoMatches(t *testing.T) {
	retriever, store := setupRetriever(t)
	ctx := context.Background()

	records := []core.Record{{
		MetricType: "HKQuantityTypeIdentifierHeartRate",
		Value:      "72",
		Unit:       "count/min",
		StartDate:  time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
	}}
	storeChunk(t, store, "user-1", 0, 0.9, records)

	matches, err := retriever.Search(ctx, "user-1", "heart", Options{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Records, 1)
	assert.Equal(t, "72", matches[0].Records[0].Value)
}

// nativeStore fakes a backend with provider-native search.
type nativeStore struct {
	storage.VectorStore
	results     []*core.ScoredDocument
	fellBack    bool
	searchCalls int
}

func (s *nativeStore) SearchByVector(ctx context.Context, ownerID string, vector []float32, limit int) ([]*core.ScoredDocument, error) {
	s.searchCalls++
	return s.results, nil
}

func (s *nativeStore) QueryByPartition(ctx context.Context, ownerID string, opts storage.QueryOptions) ([]*core.EmbeddingDocument, error) {
	s.fellBack = true
	return nil, nil
}

func TestRetriever_PrefersNativeSearch(t *testing.T) {
	store := &nativeStore{
		results: []*core.ScoredDocument{
			{
				Document: &core.EmbeddingDocument{
					ID:           "doc-a-chunk-0",
					OwnerID:      "user-1",
					ContentChunk: "native result",
					Embedding:    vectorAt(0.9),
				},
				Similarity: 0.9,
			},
		},
	}
	retriever, err := NewRetriever(store, axisEmbedder())
	require.NoError(t, err)

	matches, err := retriever.Search(context.Background(), "user-1", "heart", Options{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "native result", matches[0].Content)
	assert.Equal(t, 1, store.searchCalls)
	assert.False(t, store.fellBack, "no client-side scoring when the backend ranked natively")
}
