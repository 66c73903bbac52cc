package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohit888790/clipbrain/ai"
	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/retry"
	"github.com/Mohit888790/clipbrain/storage"
)

// BatchStats counts what one batch did.
type BatchStats struct {
	Reused   int
	Embedded int
}

// BatchProcessor embeds one batch of chunks and stores the vectors.
type BatchProcessor struct {
	chunks      storage.ChunkRepository
	embedder    ai.Embedder
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// NewBatchProcessor creates a processor. maxAttempts bounds the batch
// embedding call; retryDelay is the first backoff step.
func NewBatchProcessor(chunks storage.ChunkRepository, embedder ai.Embedder, maxAttempts int, retryDelay time.Duration, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		chunks:      chunks,
		embedder:    embedder,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

// Process fills in embeddings for batch. Chunks whose text is already
// embedded elsewhere reuse that vector; identical texts within the batch
// are sent once.
func (bp *BatchProcessor) Process(ctx context.Context, batch []*core.TranscriptChunk) (BatchStats, error) {
	var stats BatchStats
	if len(batch) == 0 {
		return stats, nil
	}

	// text hash -> chunks waiting on that text
	waiting := make(map[string][]*core.TranscriptChunk)
	var texts, hashes []string
	for _, chunk := range batch {
		hash := chunk.TextHash
		if hash == "" {
			hash = core.HashText(chunk.Text)
		}
		if _, queued := waiting[hash]; !queued {
			cached, err := bp.chunks.FindEmbeddingByTextHash(ctx, hash)
			if err != nil {
				return stats, fmt.Errorf("failed to look up cached embedding: %w", err)
			}
			if cached != nil {
				if err := bp.store(ctx, chunk, cached); err != nil {
					return stats, err
				}
				stats.Reused++
				continue
			}
			texts = append(texts, chunk.Text)
			hashes = append(hashes, hash)
		}
		waiting[hash] = append(waiting[hash], chunk)
	}
	if len(texts) == 0 {
		return stats, nil
	}

	vectors, err := retry.Do(ctx, bp.maxAttempts, bp.retryDelay, func(ctx context.Context) ([][]float32, error) {
		return bp.embedder.EmbedTexts(ctx, texts)
	}, retry.WithBackoff(), retry.WithLogger(bp.logger))
	if err != nil {
		return stats, fmt.Errorf("failed to embed %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return stats, fmt.Errorf("%w: sent %d, got %d", ErrEmbeddingCountMismatch, len(texts), len(vectors))
	}

	for i, hash := range hashes {
		for _, chunk := range waiting[hash] {
			if err := bp.store(ctx, chunk, vectors[i]); err != nil {
				return stats, err
			}
			stats.Embedded++
		}
	}
	return stats, nil
}

func (bp *BatchProcessor) store(ctx context.Context, chunk *core.TranscriptChunk, vector []float32) error {
	if err := bp.chunks.UpdateChunkEmbedding(ctx, chunk.VideoID, chunk.StartMs, vector); err != nil {
		return fmt.Errorf("failed to store embedding for %s@%d: %w", chunk.VideoID, chunk.StartMs, err)
	}
	chunk.Embedding = vector
	return nil
}
