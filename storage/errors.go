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


package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable indicates a connectivity or transport failure, including
	// a backend that has already been closed.
	ErrUnavailable = errors.New("store unavailable")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrDimensionMismatch indicates a query vector whose length differs from
	// the stored vectors.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Store names used when reporting unavailability.
const (
	CandidateStoreName = "candidate store"
	VectorIndexName    = "vector index"
)

// Unavailable wraps err as ErrUnavailable for the named store.
func Unavailable(store string, err error) error {
	return fmt.Errorf("%s: %w: %w", store, ErrUnavailable, err)
}
