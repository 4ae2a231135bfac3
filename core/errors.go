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

import "errors"

// Root error categories. Every pipeline error wraps exactly one of these,
// so callers can classify failures with errors.Is regardless of which
// component produced them.
var (
	// ErrParse indicates malformed, empty, or structurally invalid export input.
	ErrParse = errors.New("parse error")

	// ErrValidation indicates a domain rule violation: a missing required
	// record field, a wrong embedding dimension, or an exceeded token budget.
	ErrValidation = errors.New("validation error")

	// ErrProvider indicates a failure reported by the external embedding or
	// chat provider, including transport and rate-limit errors.
	ErrProvider = errors.New("provider error")

	// ErrPersistence indicates a store write or delete failure.
	ErrPersistence = errors.New("persistence error")
)

// Parse refinements
var (
	// ErrEmptyExport indicates the export input was empty or whitespace-only.
	ErrEmptyExport = errors.New("export is empty")

	// ErrMissingAnchor indicates the expected HealthData root element is absent.
	ErrMissingAnchor = errors.New("export root element not found")
)

// Validation refinements
var (
	// ErrMissingMetricType indicates a record without a metric type.
	ErrMissingMetricType = errors.New("metric type is required")

	// ErrMissingValue indicates a record without a value.
	ErrMissingValue = errors.New("value is required")

	// ErrMissingStartDate indicates a record without a start date.
	ErrMissingStartDate = errors.New("start date is required")

	// ErrDimensionMismatch indicates a vector whose length does not match
	// the expected embedding dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrTokenBudget indicates chunk text whose estimated token count
	// exceeds the provider's stated ceiling.
	ErrTokenBudget = errors.New("token budget exceeded")
)
