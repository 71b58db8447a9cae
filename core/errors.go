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

var (
	// ErrValidation indicates a malformed candidate or search query.
	// It is returned before any store is touched and is never retried.
	ErrValidation = errors.New("validation failed")

	// ErrInconsistentWrite indicates that one store accepted a write the other
	// rejected. It is reported as a warning, never as a failed call.
	ErrInconsistentWrite = errors.New("inconsistent write across stores")
)

// Candidate validation errors
var (
	// ErrNilCandidate indicates a nil candidate was supplied.
	ErrNilCandidate = errors.New("candidate is nil")

	// ErrEmptyName indicates the candidate Name field is empty.
	ErrEmptyName = errors.New("candidate name cannot be empty")

	// ErrInvalidDocumentType indicates an unknown DocumentType value.
	ErrInvalidDocumentType = errors.New("invalid document type")

	// ErrInvalidGPA indicates a negative GPA.
	ErrInvalidGPA = errors.New("gpa cannot be negative")
)

// Query validation errors
var (
	// ErrInvalidLimit indicates a limit that is not strictly positive.
	ErrInvalidLimit = errors.New("limit must be greater than zero")

	// ErrInvalidOffset indicates a negative offset.
	ErrInvalidOffset = errors.New("offset cannot be negative")

	// ErrInvalidWeight indicates a negative or NaN blend weight.
	ErrInvalidWeight = errors.New("weights must be non-negative numbers")

	// ErrEmptyQuery indicates a query with no text and no structured clause.
	ErrEmptyQuery = errors.New("query must have text or at least one structured clause")
)
