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


// Package prompt assembles retrieval results into a guarded system prompt
// and tracks bounded conversation history.
package prompt

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/vitalit/core"
)

// DefaultMaxContextChars bounds the enumerated chunk listing. Chunks are
// included greedily in rank order until the budget is exhausted.
const DefaultMaxContextChars = 6000

const systemPromptTemplate = `You are a personal health data assistant. Answer the user's question using only the health data context supplied below.

%s

Health data context:
%s

Guidelines:
- Ground every statement in the supplied context. Do not invent measurements.
- If the context does not contain enough data to answer, say so plainly.
- Do not diagnose. Defer medical judgment to qualified healthcare professionals.`

// Context is an assembled prompt for one query.
type Context struct {
	Summary   string // Natural-language overview of the matches
	Prompt    string // Full guarded system prompt
	Included  int    // Chunks that fit the character budget
	Truncated bool   // True when lower-ranked chunks were dropped
}

// Assembler builds chat context from ranked chunk matches.
type Assembler struct {
	maxContextChars int
	logger          *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithMaxContextChars overrides the chunk listing character budget.
func WithMaxContextChars(max int) Option {
	return func(a *Assembler) error {
		if max < 1 {
			return fmt.Errorf("context budget must be positive")
		}
		a.maxContextChars = max
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAssembler creates an assembler with the default context budget.
func NewAssembler(opts ...Option) (*Assembler, error) {
	a := &Assembler{
		maxContextChars: DefaultMaxContextChars,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Assemble produces the guarded system prompt for a query and its ranked
// matches. Matches beyond the character budget are dropped, lowest rank
// first, and the listing says so explicitly.
func (a *Assembler) Assemble(query string, matches []core.ChunkMatch) *Context {
	summary := summarize(matches)

	listing, included := a.buildListing(matches)
	truncated := included < len(matches)
	if truncated {
		a.logger.Debug("context truncated",
			"included", included, "dropped", len(matches)-included)
	}

	return &Context{
		Summary:   summary,
		Prompt:    fmt.Sprintf(systemPromptTemplate, summary, listing),
		Included:  included,
		Truncated: truncated,
	}
}

// buildListing enumerates matches greedily until the character budget is
// reached, returning the listing and the number of included chunks.
func (a *Assembler) buildListing(matches []core.ChunkMatch) (string, int) {
	if len(matches) == 0 {
		return "(no matching health data)", 0
	}

	var sb strings.Builder
	included := 0
	for i, m := range matches {
		entry := fmt.Sprintf("[%d] (similarity %.1f%%)\n%s\n", i+1, m.Similarity*100, m.Content)
		if sb.Len()+len(entry) > a.maxContextChars {
			break
		}
		sb.WriteString(entry)
		included++
	}

	if included == 0 {
		// Budget too small for even the top match: include a clipped
		// version rather than answering from nothing.
		clipped := matches[0].Content
		if len(clipped) > a.maxContextChars {
			clipped = clipped[:a.maxContextChars]
		}
		sb.WriteString(clipped)
		sb.WriteString("\n")
		included = 1
	}

	if included < len(matches) {
		fmt.Fprintf(&sb, "(%d lower-ranked chunks omitted to fit the context budget)", len(matches)-included)
	}
	return sb.String(), included
}

// summarize describes the match set: count, average similarity, distinct
// metric types, and the observation time span.
func summarize(matches []core.ChunkMatch) string {
	if len(matches) == 0 {
		return "No matching health data was found for this question."
	}

	var totalSimilarity float64
	var minTime, maxTime time.Time
	seen := make(map[string]bool)
	var types []string

	for _, m := range matches {
		totalSimilarity += m.Similarity
		if minTime.IsZero() || m.Timestamp.Before(minTime) {
			minTime = m.Timestamp
		}
		if m.Timestamp.After(maxTime) {
			maxTime = m.Timestamp
		}
		for _, r := range m.Records {
			display := core.FormatHealthType(r.MetricType)
			if !seen[display] {
				seen[display] = true
				types = append(types, display)
			}
		}
	}

	avg := totalSimilarity / float64(len(matches)) * 100
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d matching health data chunk(s), average similarity %.1f%%.", len(matches), avg)
	if len(types) > 0 {
		fmt.Fprintf(&sb, " Metric types: %s.", strings.Join(types, ", "))
	}
	if !minTime.IsZero() {
		fmt.Fprintf(&sb, " Observations span %s to %s.",
			minTime.Format("2006-01-02"), maxTime.Format("2006-01-02"))
	}
	return sb.String()
}
