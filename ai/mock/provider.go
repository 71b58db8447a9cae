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
package mock

import (
	"sync/atomic"

	"github.com/poiesic/candidex/ai"
)

// MockProvider bundles a MockEmbedder and a MockExtractor behind
// ai.AIProvider and records whether it was closed.
type MockProvider struct {
	Embed   *MockEmbedder
	Extract *MockExtractor

	closed atomic.Int32
}

// NewMockProvider returns a provider with fresh deterministic services.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockExtractor())
}

// NewMockProviderWithServices wraps the given doubles. Nil services are
// replaced by fresh ones so tests only pass what they inspect.
func NewMockProviderWithServices(embedder *MockEmbedder, extractor *MockExtractor) *MockProvider {
	if embedder == nil {
		embedder = NewMockEmbedder()
	}
	if extractor == nil {
		extractor = NewMockExtractor()
	}
	return &MockProvider{Embed: embedder, Extract: extractor}
}

func (p *MockProvider) Embedder() ai.Embedder {
	return p.Embed
}

func (p *MockProvider) Extractor() ai.Extractor {
	return p.Extract
}

// Close counts calls so tests can check the owner released the provider once.
func (p *MockProvider) Close() error {
	p.closed.Add(1)
	return nil
}

// CloseCount returns how many times Close was called.
func (p *MockProvider) CloseCount() int {
	return int(p.closed.Load())
}
