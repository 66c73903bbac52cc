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

import "github.com/Mohit888790/clipbrain/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock embedder and notes generator instances.
type MockProvider struct {
	embedder *MockEmbedder
	notes    *MockNotesGenerator
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockNotes() to access concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		notes:    NewMockNotesGenerator(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
func NewMockProviderWithServices(embedder *MockEmbedder, notes *MockNotesGenerator) ai.AIProvider {
	return &MockProvider{
		embedder: embedder,
		notes:    notes,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// NotesGenerator returns the mock notes generator.
func (p *MockProvider) NotesGenerator() ai.NotesGenerator {
	return p.notes
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockNotes returns the underlying mock notes generator for test assertions.
func (p *MockProvider) GetMockNotes() *MockNotesGenerator {
	return p.notes
}
