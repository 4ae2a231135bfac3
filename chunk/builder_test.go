package chunk

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/vitalit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecords(metricType string, count int) []core.Record {
	base := time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC)
	records := make([]core.Record, count)
	for i := range records {
		records[i] = core.Record{
			MetricType: metricType,
			Value:      fmt.Sprintf("%d", 1000+i),
			Unit:       "count",
			StartDate:  base.Add(time.Duration(i) * time.Minute),
			EndDate:    base.Add(time.Duration(i) * time.Minute),
			SourceName: "iPhone",
		}
	}
	return records
}

func countRecords(chunks []core.Chunk) int {
	total := 0
	for _, c := range chunks {
		total += len(c.Records)
	}
	return total
}

func TestBuilder_Build_EmptyInput(t *testing.T) {
	builder := NewBuilder()
	assert.Empty(t, builder.Build(nil))
	assert.Empty(t, builder.Build([]core.Record{}))
}

func TestBuilder_Build_SingleRecord(t *testing.T) {
	builder := NewBuilder()

	chunks := builder.Build(makeRecords("HKQuantityTypeIdentifierStepCount", 1))
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0].Records, 1)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestBuilder_Build_PreservesRecordCount(t *testing.T) {
	builder := NewBuilder()

	records := append(
		makeRecords("HKQuantityTypeIdentifierStepCount", 87),
		makeRecords("HKQuantityTypeIdentifierHeartRate", 53)...)

	chunks := builder.Build(records)
	assert.Equal(t, len(records), countRecords(chunks), "no record dropped or duplicated")
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Records), DefaultMaxWindow)
		assert.NotEmpty(t, c.Records)
	}
	for i, c := range chunks {
		assert.Equal(t, i, c.Index, "chunk indices are contiguous")
	}
}

// 100 same-type records at window size 35 split into chunks of 35, 35 and 30
// in chronological order.
func TestBuilder_Build_HundredRecordsWindow35(t *testing.T) {
	builder := NewBuilder(WithMaxWindowSize(35))

	records := makeRecords("HKQuantityTypeIdentifierStepCount", 100)
	// Shuffle-ish input order; grouped strategy must restore chronology.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	chunks := builder.Build(records)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Records, 35)
	assert.Len(t, chunks[1].Records, 35)
	assert.Len(t, chunks[2].Records, 30)

	previous := time.Time{}
	for _, c := range chunks {
		for _, r := range c.Records {
			assert.False(t, r.StartDate.Before(previous), "records sorted ascending by start date")
			previous = r.StartDate
		}
	}
}

func TestBuilder_Build_NeverStraddlesTypeBoundary(t *testing.T) {
	builder := NewBuilder()

	records := append(
		makeRecords("HKQuantityTypeIdentifierStepCount", 40),
		makeRecords("HKQuantityTypeIdentifierHeartRate", 5)...)

	chunks := builder.Build(records)
	for _, c := range chunks {
		first := c.Records[0].MetricType
		for _, r := range c.Records {
			assert.Equal(t, first, r.MetricType, "chunk mixes metric types")
		}
	}
}

func TestBuilder_Build_Sequential(t *testing.T) {
	builder := NewBuilder(WithStrategy(SequentialFixed), WithWindowSize(15))

	records := append(
		makeRecords("HKQuantityTypeIdentifierStepCount", 20),
		makeRecords("HKQuantityTypeIdentifierHeartRate", 13)...)

	chunks := builder.Build(records)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Records, 15)
	assert.Len(t, chunks[1].Records, 15)
	assert.Len(t, chunks[2].Records, 3)

	// Input order preserved, including across metric types.
	assert.Equal(t, records[0], chunks[0].Records[0])
	assert.Equal(t, records[15], chunks[1].Records[0])
}

func TestBuilder_AdaptiveWindowSize(t *testing.T) {
	builder := NewBuilder()

	t.Run("empty group returns configured maximum", func(t *testing.T) {
		assert.Equal(t, DefaultMaxWindow, builder.AdaptiveWindowSize(nil))
	})

	t.Run("typical records clamp to maximum", func(t *testing.T) {
		size := builder.AdaptiveWindowSize(makeRecords("HKQuantityTypeIdentifierStepCount", 50))
		assert.Equal(t, DefaultMaxWindow, size)
	})

	t.Run("very long lines clamp to minimum", func(t *testing.T) {
		records := makeRecords("HKQuantityTypeIdentifierStepCount", 5)
		for i := range records {
			records[i].SourceName = strings.Repeat("x", 4000)
		}
		size := builder.AdaptiveWindowSize(records)
		assert.Equal(t, MinWindow, size)
	})

	t.Run("non-empty group stays within bounds", func(t *testing.T) {
		for _, n := range []int{1, 3, 10, 25, 100} {
			size := builder.AdaptiveWindowSize(makeRecords("HKQuantityTypeIdentifierHeartRate", n))
			assert.GreaterOrEqual(t, size, MinWindow)
			assert.LessOrEqual(t, size, DefaultMaxWindow)
		}
	})
}
