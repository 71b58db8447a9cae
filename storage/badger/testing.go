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


package badger

import (
	"testing"

	"github.com/poiesic/candidex/ai"
)

// Stores bundles the candidate repository and vector index that share one
// Backend.
type Stores struct {
	Backend    *Backend
	Candidates *CandidateRepository
	Index      *VectorIndex
}

// Close closes both stores and then the backend.
func (s *Stores) Close() error {
	s.Candidates.Close()
	s.Index.Close()
	return s.Backend.Close()
}

// StoreOptions carries options for the shared backend and the candidate
// repository built on it.
type StoreOptions struct {
	Backend    []BackendOption
	Candidates []CandidateOption
}

// OpenStores opens a persistent database at path and builds both stores on it.
func OpenStores(path string, embedder ai.Embedder, opts StoreOptions) (*Stores, error) {
	return openStores(path, false, embedder, opts)
}

// NewMemoryStores creates in-memory stores for testing.
// The backend is closed automatically when the test finishes.
func NewMemoryStores(t testing.TB, embedder ai.Embedder, opts ...CandidateOption) *Stores {
	t.Helper()
	stores, err := openStores("", true, embedder, StoreOptions{Candidates: opts})
	if err != nil {
		t.Fatalf("open memory stores: %v", err)
	}
	t.Cleanup(func() { stores.Close() })
	return stores
}

func openStores(path string, inMemory bool, embedder ai.Embedder, opts StoreOptions) (*Stores, error) {
	backend, err := OpenBackend(path, inMemory, opts.Backend...)
	if err != nil {
		return nil, err
	}

	candidates, err := NewCandidateRepository(backend, opts.Candidates...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	index, err := NewVectorIndex(backend, embedder)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Stores{
		Backend:    backend,
		Candidates: candidates,
		Index:      index,
	}, nil
}
