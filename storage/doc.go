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

// Package storage provides the storage abstraction layer for clipbrain.
//
// This package defines repository interfaces that decouple persistence from the
// ingestion pipeline and the search ranker. Two backends implement them:
// BadgerDB (embedded, the default) and PostgreSQL with pgvector.
//
// # Records
//
// Four record families are stored:
//   - VideoJob: one row per ingestion request, updated once per state transition
//   - Transcript: full transcript text, one per video
//   - Notes: generated study notes, one per video
//   - TranscriptChunk: keyed by (video id, start ms), with a text-hash index
//     used to reuse embeddings for identical chunk text
//
// # Constructor Return Type Pattern
//
// Backend constructors return concrete types; callers hold them through the
// interfaces in this package:
//
//	backend, err := badger.OpenBackend(path, false)
//	repos, err := badger.NewRepositories(backend)
//	var jobs storage.JobRepository = repos.Jobs
//
// # Errors
//
// Lookups for missing records return ErrNotFound. FindEmbeddingByTextHash is
// the exception: a cache miss is nil, nil.
package storage
