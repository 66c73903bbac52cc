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

import "github.com/Mohit888790/clipbrain/storage"

// NewRepositories builds every repository on top of an open backend.
func NewRepositories(backend *Backend) *storage.Repositories {
	return &storage.Repositories{
		Jobs:        NewJobRepository(backend),
		Transcripts: NewTranscriptRepository(backend),
		Notes:       NewNotesRepository(backend),
		Chunks:      NewChunkRepository(backend),
	}
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must close the backend when done.
func NewMemoryRepositories() (*storage.Repositories, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}
	return NewRepositories(backend), backend, nil
}
