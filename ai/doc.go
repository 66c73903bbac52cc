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

// Package ai provides abstractions for the AI services used by clipbrain.
//
// This package defines interfaces for text embeddings and notes generation so
// the ingestion pipeline and the search ranker depend on abstractions rather
// than concrete providers.
//
// # Interfaces
//
//   - Embedder: Generates vector embeddings from text
//   - NotesGenerator: Extracts structured notes from a transcript
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// interface types. Mock constructors return concrete types so tests can
// inject behavior and inspect call counts:
//
//	mockEmbed := mock.NewMockEmbedder()   // returns *mock.MockEmbedder
//	mockEmbed.EmbedTextFunc = failing     // needs concrete type
//	count := mockEmbed.CallCount()
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "hello world")
//	notes, err := provider.NotesGenerator().GenerateNotes(ctx, transcript, 420)
//
// Notes generation never fails on a malformed response; see NotesResult.
package ai
