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


// Package embed turns chunks into persisted embedding documents. Chunks
// are processed in fixed-size concurrent batches; a failure anywhere in a
// batch aborts the rest of the document's processing.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vitalit/ai"
	"github.com/poiesic/vitalit/core"
	"github.com/poiesic/vitalit/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize bounds concurrent embedding calls per batch.
	DefaultBatchSize = 4

	// MinBatchSize and MaxBatchSize clamp the configurable batch size.
	MinBatchSize = 3
	MaxBatchSize = 5

	// DefaultTokenCeiling is the provider's stated per-call token limit.
	DefaultTokenCeiling = 8000

	// DefaultMaxChunkChars truncates rendered chunk text before the
	// provider call.
	DefaultMaxChunkChars = 8000

	charsPerToken = 4
)

// Result summarizes one document's embedding run.
type Result struct {
	Processed int // Chunks embedded and persisted
	Failed    int // Chunks that failed before the run aborted
}

// Orchestrator renders chunks, embeds them in bounded batches, and
// persists the resulting documents.
type Orchestrator struct {
	store         storage.VectorStore
	embedder      ai.Embedder
	pool          *ants.Pool
	batchSize     int
	tokenCeiling  int
	maxChunkChars int
	progress      *ProgressTracker
	logger        *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithBatchSize sets the concurrent batch size, clamped to
// [MinBatchSize, MaxBatchSize].
func WithBatchSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < MinBatchSize {
			size = MinBatchSize
		}
		if size > MaxBatchSize {
			size = MaxBatchSize
		}
		o.batchSize = size
		return nil
	}
}

// WithTokenCeiling overrides the provider token limit.
func WithTokenCeiling(ceiling int) Option {
	return func(o *Orchestrator) error {
		if ceiling < 1 {
			return fmt.Errorf("token ceiling must be positive")
		}
		o.tokenCeiling = ceiling
		return nil
	}
}

// WithMaxChunkChars overrides the rendered text character budget.
func WithMaxChunkChars(max int) Option {
	return func(o *Orchestrator) error {
		if max < 1 {
			return fmt.Errorf("chunk character budget must be positive")
		}
		o.maxChunkChars = max
		return nil
	}
}

// WithProgress attaches a progress tracker.
func WithProgress(tracker *ProgressTracker) Option {
	return func(o *Orchestrator) error {
		o.progress = tracker
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator over the given store and
// embedder. The worker pool is sized to the batch size; callers must
// Release it when done.
func NewOrchestrator(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}

	o := &Orchestrator{
		store:         store,
		embedder:      embedder,
		batchSize:     DefaultBatchSize,
		tokenCeiling:  DefaultTokenCeiling,
		maxChunkChars: DefaultMaxChunkChars,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(o.batchSize)
	if err != nil {
		return nil, err
	}
	o.pool = pool
	return o, nil
}

// EmbedDocument embeds all chunks of one import and persists them under
// the owner partition. Re-processing the same document first deletes its
// previous chunks, so the deterministic chunk IDs never collide.
//
// Batches run strictly in sequence: batch k+1 starts only after every
// task in batch k has settled. The first failing task aborts the run;
// chunks persisted by earlier batches are not rolled back.
func (o *Orchestrator) EmbedDocument(ctx context.Context, ownerID, documentID string, chunks []core.Chunk) (*Result, error) {
	result := &Result{}
	if len(chunks) == 0 {
		return result, nil
	}

	if err := o.store.DeleteByOwner(ctx, ownerID, documentID); err != nil {
		return result, fmt.Errorf("%w: clearing document %s: %w", core.ErrPersistence, documentID, err)
	}

	if o.progress != nil {
		o.progress.Start()
		defer o.progress.Finish()
	}

	var processed, failed atomic.Int64
	for start := 0; start < len(chunks); start += o.batchSize {
		end := start + o.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		if err := o.runBatch(ctx, ownerID, documentID, chunks[start:end], &processed, &failed); err != nil {
			result.Processed = int(processed.Load())
			result.Failed = int(failed.Load())
			o.logger.Error("embedding run aborted",
				"document", documentID, "processed", result.Processed, "failed", result.Failed, "err", err)
			return result, err
		}
	}

	result.Processed = int(processed.Load())
	result.Failed = int(failed.Load())
	o.logger.Info("embedded document",
		"document", documentID, "owner", ownerID, "chunks", result.Processed)
	return result, nil
}

// runBatch submits one batch to the worker pool and waits for every task
// to settle, returning the first failure.
func (o *Orchestrator) runBatch(ctx context.Context, ownerID, documentID string, batch []core.Chunk, processed, failed *atomic.Int64) error {
	g := new(errgroup.Group)
	for i := range batch {
		chunk := batch[i]
		done := make(chan error, 1)
		if err := o.pool.Submit(func() {
			done <- o.processChunk(ctx, ownerID, documentID, chunk, processed, failed)
		}); err != nil {
			return err
		}
		g.Go(func() error { return <-done })
	}
	return g.Wait()
}

func (o *Orchestrator) processChunk(ctx context.Context, ownerID, documentID string, chunk core.Chunk, processed, failed *atomic.Int64) (err error) {
	defer func() {
		if err != nil {
			failed.Add(1)
		} else {
			processed.Add(1)
		}
		if o.progress != nil {
			o.progress.ChunkDone(err != nil)
		}
	}()

	content := core.FormatChunk(&chunk)
	if len(content) > o.maxChunkChars {
		o.logger.Warn("truncating oversized chunk",
			"document", documentID, "chunk", chunk.Index, "chars", len(content))
		content = content[:o.maxChunkChars]
	}

	if tokens := len(content) / charsPerToken; tokens > o.tokenCeiling {
		return fmt.Errorf("%w: %w: chunk %d estimated at %d tokens, ceiling %d",
			core.ErrValidation, core.ErrTokenBudget, chunk.Index, tokens, o.tokenCeiling)
	}

	vector, err := o.embedder.EmbedText(ctx, content)
	if err != nil {
		return err
	}
	if err := core.ValidateEmbedding(vector, o.embedder.Dimension()); err != nil {
		return fmt.Errorf("chunk %d: %w", chunk.Index, err)
	}

	metadata := make([]byte, core.RecordSliceMUS.Size(chunk.Records))
	core.RecordSliceMUS.Marshal(chunk.Records, metadata)

	doc := &core.EmbeddingDocument{
		ID:           core.EmbeddingDocumentID(documentID, chunk.Index),
		OwnerID:      ownerID,
		DocumentID:   documentID,
		ChunkIndex:   chunk.Index,
		ContentChunk: content,
		Embedding:    vector,
		Metadata:     metadata,
		Timestamp:    chunkTimestamp(chunk),
	}
	if _, err := o.store.Create(ctx, doc); err != nil {
		return fmt.Errorf("%w: writing document %s: %w", core.ErrPersistence, doc.ID, err)
	}
	return nil
}

// chunkTimestamp stamps the document with the chunk's earliest
// observation time, falling back to now for empty chunks.
func chunkTimestamp(chunk core.Chunk) time.Time {
	if len(chunk.Records) == 0 {
		return time.Now().UTC()
	}
	earliest := chunk.Records[0].StartDate
	for _, r := range chunk.Records[1:] {
		if r.StartDate.Before(earliest) {
			earliest = r.StartDate
		}
	}
	return earliest
}

// Release releases the worker pool. The orchestrator must not be used
// after calling Release.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}
