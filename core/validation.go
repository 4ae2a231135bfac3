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


package core

import "fmt"

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - MetricType must not be empty
//   - Value must not be empty
//   - StartDate must not be zero
//
// NOT validated:
//   - Unit, SourceName, SourceVersion, Device, CreationDate (all optional)
//   - EndDate (defaulted to StartDate during parsing)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrValidation)
	}

	if record.MetricType == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingMetricType)
	}

	if record.Value == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingValue)
	}

	if record.StartDate.IsZero() {
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingStartDate)
	}

	return nil
}

// ValidateEmbedding validates that a returned vector has the expected
// dimension. A mismatch is a hard failure, never silently accepted.
func ValidateEmbedding(vector []float32, expectedDim int) error {
	if len(vector) != expectedDim {
		return fmt.Errorf("%w: %w: expected %d, got %d",
			ErrValidation, ErrDimensionMismatch, expectedDim, len(vector))
	}
	return nil
}
