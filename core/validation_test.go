package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() *Record {
	start := time.Date(2024, 3, 14, 8, 30, 0, 0, time.UTC)
	return &Record{
		MetricType: "HKQuantityTypeIdentifierHeartRate",
		Value:      "72",
		Unit:       "count/min",
		StartDate:  start,
		EndDate:    start,
	}
}

func TestValidateRecord(t *testing.T) {
	t.Run("valid record passes", func(t *testing.T) {
		require.NoError(t, ValidateRecord(validRecord()))
	})

	t.Run("nil record fails", func(t *testing.T) {
		err := ValidateRecord(nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	tests := []struct {
		name     string
		mutate   func(*Record)
		expected error
	}{
		{
			name:     "missing metric type",
			mutate:   func(r *Record) { r.MetricType = "" },
			expected: ErrMissingMetricType,
		},
		{
			name:     "missing value",
			mutate:   func(r *Record) { r.Value = "" },
			expected: ErrMissingValue,
		},
		{
			name:     "missing start date",
			mutate:   func(r *Record) { r.StartDate = time.Time{} },
			expected: ErrMissingStartDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(record)
			err := ValidateRecord(record)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestValidateEmbedding(t *testing.T) {
	t.Run("matching dimension passes", func(t *testing.T) {
		require.NoError(t, ValidateEmbedding(make([]float32, 1536), 1536))
	})

	t.Run("short vector fails", func(t *testing.T) {
		err := ValidateEmbedding(make([]float32, 512), 1536)
		assert.ErrorIs(t, err, ErrValidation)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("nil vector fails", func(t *testing.T) {
		err := ValidateEmbedding(nil, 1536)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}
