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

package reembed

import (
	"context"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
)

const (
	// DefaultBatchSize is the default number of chunks per batch.
	DefaultBatchSize = 32
)

// ChunkIterator walks the chunks that have no embedding, in batches.
type ChunkIterator struct {
	chunks    storage.ChunkRepository
	batchSize int
}

// NewChunkIterator creates an iterator. A batchSize <= 0 uses DefaultBatchSize.
func NewChunkIterator(chunks storage.ChunkRepository, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{
		chunks:    chunks,
		batchSize: batchSize,
	}
}

// Pending returns every chunk currently lacking an embedding.
func (it *ChunkIterator) Pending(ctx context.Context) ([]*core.TranscriptChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return it.chunks.ListChunksWithoutEmbedding(ctx)
}

// ForEach calls fn with consecutive batches of pending. Iteration stops at
// the first error from fn or when ctx is done between batches.
func (it *ChunkIterator) ForEach(ctx context.Context, pending []*core.TranscriptChunk, fn func([]*core.TranscriptChunk) error) error {
	for i := 0; i < len(pending); i += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+it.batchSize, len(pending))
		if err := fn(pending[i:end]); err != nil {
			return err
		}
	}
	return nil
}
