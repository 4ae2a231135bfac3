package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/vitalit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeMatches() []core.ChunkMatch {
	return []core.ChunkMatch{
		{
			ID:         "doc-a-chunk-0",
			Content:    "heart rate: 72 count/min recorded from 2024-03-14 08:00:00 to 2024-03-14 08:00:00 via Apple Watch",
			Similarity: 0.9,
			Records: []core.Record{
				{MetricType: "HKQuantityTypeIdentifierHeartRate"},
			},
			Timestamp: time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
		},
		{
			ID:         "doc-a-chunk-1",
			Content:    "step count: 1000 count recorded from 2024-06-01 09:00:00 to 2024-06-01 09:00:00 via iPhone",
			Similarity: 0.7,
			Records: []core.Record{
				{MetricType: "HKQuantityTypeIdentifierStepCount"},
			},
			Timestamp: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		},
	}
}

func TestAssembler_Summary(t *testing.T) {
	assembler, err := NewAssembler()
	require.NoError(t, err)

	result := assembler.Assemble("how active was I", makeMatches())

	assert.Contains(t, result.Summary, "2 matching health data chunk(s)")
	assert.Contains(t, result.Summary, "80.0%")
	assert.Contains(t, result.Summary, "heart rate, step count")
	assert.Contains(t, result.Summary, "2024-03-14 to 2024-06-01")
	assert.Equal(t, 2, result.Included)
	assert.False(t, result.Truncated)
}

func TestAssembler_Guardrails(t *testing.T) {
	assembler, err := NewAssembler()
	require.NoError(t, err)

	result := assembler.Assemble("question", makeMatches())

	assert.Contains(t, result.Prompt, "using only the health data context")
	assert.Contains(t, result.Prompt, "does not contain enough data")
	assert.Contains(t, result.Prompt, "healthcare professionals")
	assert.Contains(t, result.Prompt, "[1] (similarity 90.0%)")
	assert.Contains(t, result.Prompt, "[2] (similarity 70.0%)")
}

func TestAssembler_NoMatches(t *testing.T) {
	assembler, err := NewAssembler()
	require.NoError(t, err)

	result := assembler.Assemble("question", nil)

	assert.Contains(t, result.Summary, "No matching health data")
	assert.Contains(t, result.Prompt, "(no matching health data)")
	assert.Equal(t, 0, result.Included)
}

func TestAssembler_TruncatesToBudget(t *testing.T) {
	assembler, err := NewAssembler(WithMaxContextChars(300))
	require.NoError(t, err)

	matches := make([]core.ChunkMatch, 5)
	for i := range matches {
		matches[i] = core.ChunkMatch{
			ID:         fmt.Sprintf("doc-a-chunk-%d", i),
			Content:    strings.Repeat("x", 100),
			Similarity: 0.9 - float64(i)*0.05,
			Timestamp:  time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC),
		}
	}

	result := assembler.Assemble("question", matches)

	assert.True(t, result.Truncated)
	assert.Less(t, result.Included, 5)
	assert.GreaterOrEqual(t, result.Included, 1, "top-ranked chunk always survives")
	assert.Contains(t, result.Prompt, "omitted to fit the context budget")
	// The top-ranked chunk is kept, the tail is dropped.
	assert.Contains(t, result.Prompt, "[1] (similarity 90.0%)")
	assert.NotContains(t, result.Prompt, "[5]")
}

func TestAssembler_TinyBudgetClipsTopMatch(t *testing.T) {
	assembler, err := NewAssembler(WithMaxContextChars(50))
	require.NoError(t, err)

	matches := []core.ChunkMatch{{
		ID:         "doc-a-chunk-0",
		Content:    strings.Repeat("y", 200),
		Similarity: 0.9,
	}}

	result := assembler.Assemble("question", matches)

	assert.Equal(t, 1, result.Included)
	assert.Contains(t, result.Prompt, strings.Repeat("y", 50))
	assert.NotContains(t, result.Prompt, strings.Repeat("y", 51))
}
