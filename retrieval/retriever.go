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


// Package retrieval ranks previously embedded chunks against a query.
// It prefers the store's native vector search and falls back to
// client-side cosine scoring when the backend has none.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/vitalit/ai"
	"github.com/poiesic/vitalit/core"
	"github.com/poiesic/vitalit/storage"
)

const (
	// DefaultLimit is the number of matches returned per query.
	DefaultLimit = 10

	// DefaultSimilarityThreshold drops matches below this cosine score.
	DefaultSimilarityThreshold = 0.5

	// candidateMultiplier oversizes the fallback candidate fetch so that
	// threshold filtering still leaves enough matches to fill the limit.
	candidateMultiplier = 3
)

// Options narrows and sizes a retrieval query. The zero value means
// defaults with no filters.
type Options struct {
	// Limit caps the number of returned matches. Zero means DefaultLimit.
	Limit int

	// SimilarityThreshold overrides DefaultSimilarityThreshold when > 0.
	SimilarityThreshold float64

	// TimeRangeStart and TimeRangeEnd restrict matches to chunks holding
	// at least one record inside the range. Zero times leave that end of
	// the range open.
	TimeRangeStart time.Time
	TimeRangeEnd   time.Time

	// MetricTypes restricts matches to chunks holding at least one record
	// of a listed type. Raw identifiers and display names both match.
	MetricTypes []string
}

func (o Options) limit() int {
	if o.Limit > 0 {
		return o.Limit
	}
	return DefaultLimit
}

func (o Options) threshold() float64 {
	if o.SimilarityThreshold > 0 {
		return o.SimilarityThreshold
	}
	return DefaultSimilarityThreshold
}

// Retriever embeds a query and ranks an owner's stored chunks against it.
type Retriever struct {
	store    storage.VectorStore
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a retriever over the given store and embedder.
func NewRetriever(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}

	r := &Retriever{
		store:    store,
		embedder: embedder,
		logger:   slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Search embeds the query and returns the owner's best-matching chunks,
// ranked by descending similarity. An empty result is valid and means no
// stored chunk cleared the threshold.
func (r *Retriever) Search(ctx context.Context, ownerID, query string, opts Options) ([]core.ChunkMatch, error) {
	queryVector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := r.store.SearchByVector(ctx, ownerID, queryVector, opts.limit())
	if err != nil {
		return nil, fmt.Errorf("%w: native vector search: %w", core.ErrPersistence, err)
	}
	if len(scored) > 0 {
		r.logger.Debug("used native vector search", "owner", ownerID, "candidates", len(scored))
		return r.rank(scored, opts), nil
	}

	// No native search: pull an oversized candidate set and score here.
	docs, err := r.store.QueryByPartition(ctx, ownerID, storage.QueryOptions{
		Limit: opts.limit() * candidateMultiplier,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: candidate fetch: %w", core.ErrPersistence, err)
	}

	scored = make([]*core.ScoredDocument, 0, len(docs))
	for _, doc := range docs {
		similarity, err := CosineSimilarity(queryVector, doc.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: scoring document %s: %w", core.ErrValidation, doc.ID, err)
		}
		scored = append(scored, &core.ScoredDocument{Document: doc, Similarity: similarity})
	}
	r.logger.Debug("used client-side scoring", "owner", ownerID, "candidates", len(scored))
	return r.rank(scored, opts), nil
}

// rank filters, sorts, and truncates scored candidates into matches.
func (r *Retriever) rank(scored []*core.ScoredDocument, opts Options) []core.ChunkMatch {
	threshold := opts.threshold()
	matches := make([]core.ChunkMatch, 0, len(scored))

	for _, s := range scored {
		if s.Similarity < threshold {
			continue
		}
		records := r.decodeRecords(s.Document)
		if !matchesFilters(records, opts) {
			continue
		}
		matches = append(matches, core.ChunkMatch{
			ID:         s.Document.ID,
			Content:    s.Document.ContentChunk,
			Similarity: s.Similarity,
			Records:    records,
			Timestamp:  s.Document.Timestamp,
			ChunkIndex: s.Document.ChunkIndex,
		})
	}

	// Stable sort keeps the store's deterministic candidate order for
	// equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > opts.limit() {
		matches = matches[:opts.limit()]
	}
	return matches
}

func (r *Retriever) decodeRecords(doc *core.EmbeddingDocument) []core.Record {
	if len(doc.Metadata) == 0 {
		return nil
	}
	records, _, err := core.RecordSliceMUS.Unmarshal(doc.Metadata)
	if err != nil {
		r.logger.Warn("undecodable chunk metadata", "id", doc.ID, "error", err)
		return nil
	}
	return records
}

// matchesFilters reports whether a chunk's records satisfy the optional
// time range and metric type filters. A chunk with no decodable records
// passes only when no filter is set.
func matchesFilters(records []core.Record, opts Options) bool {
	hasTimeFilter := !opts.TimeRangeStart.IsZero() || !opts.TimeRangeEnd.IsZero()
	if !hasTimeFilter && len(opts.MetricTypes) == 0 {
		return true
	}

	timeOK := !hasTimeFilter
	typeOK := len(opts.MetricTypes) == 0
	for _, rec := range records {
		if !timeOK && inRange(rec.StartDate, opts.TimeRangeStart, opts.TimeRangeEnd) {
			timeOK = true
		}
		if !typeOK && matchesType(rec.MetricType, opts.MetricTypes) {
			typeOK = true
		}
		if timeOK && typeOK {
			return true
		}
	}
	return false
}

func inRange(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}

func matchesType(metricType string, filters []string) bool {
	display := core.FormatHealthType(metricType)
	for _, f := range filters {
		if f == metricType || strings.EqualFold(f, display) {
			return true
		}
	}
	return false
}
