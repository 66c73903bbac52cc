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

// Package search provides hybrid vector and keyword retrieval over
// transcript chunks.
//
// The Searcher runs two passes concurrently:
//   - a vector pass comparing the query embedding with every stored chunk
//   - a keyword pass counting case-insensitive matches in full transcripts
//
// Each pass is min-max normalized, the passes are merged by (video, start)
// with weights 0.6 and 0.4, tag and platform filters are applied, and at
// most three spans per video are kept. The vector pass is optional: when
// the query cannot be embedded the search degrades to keyword results.
package search
