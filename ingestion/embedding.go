package ingestion

import (
	"context"
	"fmt"

	"github.com/Mohit888790/clipbrain/core"
)

// embed chunks the transcript and stores every chunk with an embedding.
// Embeddings are reused from any stored chunk with the same text hash; a
// failed provider call stores the chunk without one. Invalid chunks are
// logged and skipped.
func (p *Pipeline) embed(ctx context.Context, r *run) error {
	chunks := p.chunker.Chunk(r.words)
	limiter := newEmbedLimiter(p.embedInterval)
	logger := r.logger.With("stage", core.StageEmbeddings)

	var reused, embedded, missing, skipped int
	for i := range chunks {
		chunk := &chunks[i]
		chunk.VideoID = r.job.ID
		if err := core.ValidateChunk(chunk); err != nil {
			logger.Warn("skipping chunk", "start_ms", chunk.StartMs, "err", err)
			skipped++
			continue
		}

		cached, err := p.repos.Chunks.FindEmbeddingByTextHash(ctx, chunk.TextHash)
		if err != nil {
			logger.Warn("embedding cache lookup failed", "start_ms", chunk.StartMs, "err", err)
		}

		if cached != nil {
			chunk.Embedding = cached
			reused++
		} else {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			vector, err := p.embedder.EmbedText(ctx, chunk.Text)
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				logger.Warn("chunk embedding failed", "start_ms", chunk.StartMs, "err", err)
				missing++
			case len(vector) == 0:
				logger.Warn("chunk embedding empty", "start_ms", chunk.StartMs)
				missing++
			default:
				chunk.Embedding = vector
				embedded++
			}
		}

		if err := p.repos.Chunks.SaveChunk(ctx, chunk); err != nil {
			return fmt.Errorf("save chunk at %dms: %w", chunk.StartMs, err)
		}
	}

	logger.Info("chunks stored",
		"chunks", len(chunks),
		"reused", reused,
		"embedded", embedded,
		"missing", missing,
		"skipped", skipped)
	return nil
}
