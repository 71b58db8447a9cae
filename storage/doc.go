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


// Package storage provides the storage abstraction layer for candidex.
//
// This package defines the two repository interfaces the hybrid search engine
// is built on, decoupling storage implementation from search and ingestion:
//
//   - CandidateRepository: structured candidate records, exact and fuzzy
//     attribute search. It is the source of truth for candidate existence.
//   - VectorIndex: one embedding document per candidate, nearest-neighbor
//     query against free text.
//
// Two backends are provided: storage/badger (embedded, the default) and
// storage/postgres (PostgreSQL with pgvector).
//
// # Usage
//
// Open both stores on one embedded database:
//
//	stores, err := badger.OpenStores("/path/to/db", embedder, badger.StoreOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stores.Close()
//
// Use in tests with in-memory storage:
//
//	stores := badger.NewMemoryStores(t, embedder)
//
// # Errors
//
// Lookups of unknown IDs return ErrNotFound. Transport failures and closed
// backends are reported as ErrUnavailable, wrapped with the name of the store
// so callers can tell which side failed.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
