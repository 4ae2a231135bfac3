package embed

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/vitalit/ai/mock"
	"github.com/poiesic/vitalit/core"
	"github.com/poiesic/vitalit/storage"
	badgerstore "github.com/poiesic/vitalit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChunks(n, recordsPer int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		records := make([]core.Record, recordsPer)
		for j := range records {
			records[j] = core.Record{
				MetricType: "HKQuantityTypeIdentifierHeartRate",
				Value:      fmt.Sprintf("%d", 60+j),
				Unit:       "count/min",
				StartDate:  time.Date(2024, 3, 14, 8, i, j, 0, time.UTC),
			}
		}
		chunks[i] = core.Chunk{Index: i, Records: records}
	}
	return chunks
}

func setupOrchestrator(t *testing.T, embedder *mock.MockEmbedder, opts ...Option) (*Orchestrator, storage.VectorStore) {
	t.Helper()
	store, _, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	orch, err := NewOrchestrator(store, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(orch.Release)
	return orch, store
}

func TestOrchestrator_EmbedsAndPersists(t *testing.T) {
	embedder := &mock.MockEmbedder{Dim: 8}
	orch, store := setupOrchestrator(t, embedder)
	ctx := context.Background()

	chunks := makeChunks(6, 2)
	result, err := orch.EmbedDocument(ctx, "user-1", "doc-a", chunks)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 6, embedder.CallCount())

	docs, err := store.QueryByPartition(ctx, "user-1", storage.QueryOptions{DocumentID: "doc-a"})
	require.NoError(t, err)
	require.Len(t, docs, 6)

	for i, doc := range docs {
		assert.Equal(t, core.EmbeddingDocumentID("doc-a", i), doc.ID)
		assert.Equal(t, i, doc.ChunkIndex)
		assert.Len(t, doc.Embedding, 8)
		assert.Contains(t, doc.ContentChunk, "heart rate:")

		records, _, err := core.RecordSliceMUS.Unmarshal(doc.Metadata)
		require.NoError(t, err)
		assert.Len(t, records, 2, "source records travel with the document")
	}
}

func TestOrchestrator_EmptyChunkList(t *testing.T) {
	orch, _ := setupOrchestrator(t, mock.NewMockEmbedder())

	result, err := orch.EmbedDocument(context.Background(), "user-1", "doc-a", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
}

func TestOrchestrator_DimensionMismatchAbortsBatch(t *testing.T) {
	// Provider answers with 512-length vectors against a declared 1536.
	embedder := &mock.MockEmbedder{
		Dim: 1536,
		EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
			return make([]float32, 512), nil
		},
	}
	orch, store := setupOrchestrator(t, embedder)
	ctx := context.Background()

	_, err := orch.EmbedDocument(ctx, "user-1", "doc-a", makeChunks(3, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	docs, err := store.QueryByPartition(ctx, "user-1", storage.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, docs, "nothing persisted from the aborted batch")
}

func TestOrchestrator_FailFastSkipsLaterBatches(t *testing.T) {
	var calls atomic.Int64
	embedder := &mock.MockEmbedder{
		Dim: 4,
		EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
			calls.Add(1)
			return nil, fmt.Errorf("%w: rate limited", core.ErrProvider)
		},
	}
	orch, _ := setupOrchestrator(t, embedder, WithBatchSize(4))

	result, err := orch.EmbedDocument(context.Background(), "user-1", "doc-a", makeChunks(12, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProvider)

	// Only the first batch may have been in flight.
	assert.LessOrEqual(t, calls.Load(), int64(4))
	assert.Equal(t, 0, result.Processed)
}

func TestOrchestrator_BatchSequencing(t *testing.T) {
	var inFlight, maxInFlight atomic.Int64
	embedder := &mock.MockEmbedder{
		Dim: 4,
		EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
			cur := inFlight.Add(1)
			for {
				max := maxInFlight.Load()
				if cur <= max || maxInFlight.CompareAndSwap(max, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return make([]float32, 4), nil
		},
	}
	orch, _ := setupOrchestrator(t, embedder, WithBatchSize(3))

	result, err := orch.EmbedDocument(context.Background(), "user-1", "doc-a", makeChunks(10, 1))
	require.NoError(t, err)
	assert.Equal(t, 10, result.Processed)
	assert.LessOrEqual(t, maxInFlight.Load(), int64(3), "at most batchSize calls in flight")
}

func TestOrchestrator_ReprocessReplacesDocument(t *testing.T) {
	embedder := &mock.MockEmbedder{Dim: 4}
	orch, store := setupOrchestrator(t, embedder)
	ctx := context.Background()

	_, err := orch.EmbedDocument(ctx, "user-1", "doc-a", makeChunks(5, 1))
	require.NoError(t, err)

	// Second run with fewer chunks replaces the first wholesale.
	_, err = orch.EmbedDocument(ctx, "user-1", "doc-a", makeChunks(3, 1))
	require.NoError(t, err)

	docs, err := store.QueryByPartition(ctx, "user-1", storage.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestOrchestrator_TokenCeiling(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	orch, _ := setupOrchestrator(t, embedder, WithTokenCeiling(10))

	chunks := []core.Chunk{{Index: 0, Records: []core.Record{{
		MetricType: "HKQuantityTypeIdentifierHeartRate",
		Value:      strings.Repeat("9", 500),
		StartDate:  time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
	}}}}

	_, err := orch.EmbedDocument(context.Background(), "user-1", "doc-a", chunks)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.ErrorIs(t, err, core.ErrTokenBudget)
	assert.Equal(t, 0, embedder.CallCount(), "budget check happens before the provider call")
}

func TestOrchestrator_TruncatesOversizedChunk(t *testing.T) {
	var seenLen int
	embedder := &mock.MockEmbedder{
		Dim: 4,
		EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
			seenLen = len(text)
			return make([]float32, 4), nil
		},
	}
	orch, _ := setupOrchestrator(t, embedder, WithMaxChunkChars(100))

	chunks := []core.Chunk{{Index: 0, Records: []core.Record{{
		MetricType: "HKQuantityTypeIdentifierHeartRate",
		Value:      strings.Repeat("9", 500),
		StartDate:  time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
	}}}}

	_, err := orch.EmbedDocument(context.Background(), "user-1", "doc-a", chunks)
	require.NoError(t, err)
	assert.Equal(t, 100, seenLen)
}

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4, 2)

	tracker.ChunkDone(false)
	assert.Empty(t, buf.String(), "no reporting before Start")

	tracker.Start()
	tracker.ChunkDone(false)
	tracker.ChunkDone(true)
	tracker.ChunkDone(false)
	tracker.ChunkDone(false)
	tracker.Finish()

	out := buf.String()
	assert.Contains(t, out, "4/4")
	assert.Contains(t, out, "1 failed")
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}
