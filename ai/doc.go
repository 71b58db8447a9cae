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


// Package ai provides abstractions for the external AI services candidex
// consumes.
//
// Three collaborators sit behind interfaces so the search and ingestion code
// never depends on a particular model or vendor:
//
//   - Embedder: turns text into vectors for the vector index
//   - Extractor: turns raw resume text into a structured core.Candidate
//   - DocumentParser: turns a PDF or text file into plain text
//
// AIProvider bundles an Embedder and an Extractor that share configuration.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embedding and chat APIs via langchaingo
//   - ai/document: PDF and text loaders via langchaingo document loaders
//   - ai/cache: a TTL cache decorator for query embeddings
//   - ai/mock: deterministic test doubles
//
// Public constructors in ai/openai return interface types. Test constructors
// in ai/mock return concrete types so tests can inject behavior and count
// calls.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "senior data engineer")
//	candidate, err := provider.Extractor().ExtractCandidate(ctx, resumeText)
package ai
