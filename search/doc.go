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


// Package search implements hybrid candidate search.
//
// The Searcher fans a SearchQuery out to two stores at once:
//   - the vector index, for semantic similarity against the free-text clause
//   - the candidate store, for fuzzy matching of structured clauses
//
// Scores are fused additively, so a candidate found by both sources ranks
// above one found by either alone at equal strength. Results are sorted by
// fused score with ties broken by candidate ID, then paginated.
//
// The candidate store is the backbone: if it fails, the search fails. If the
// vector index fails or exceeds its timeout, the search degrades to fuzzy
// results and the response carries a partial_results warning.
package search
