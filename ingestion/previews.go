package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/media"
)

// generatePreviews cuts a clip at every chapter start from the stored media
// and uploads it. Failures are logged and skipped.
func (p *Pipeline) generatePreviews(ctx context.Context, r *run) {
	logger := r.logger.With("stage", core.StagePreviews)

	source, err := p.store.SignedURL(r.job.StoragePath, p.signedURLTTL)
	if err != nil {
		logger.Warn("cannot sign media for previews", "err", err)
		return
	}
	dir := p.previewDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("cannot create preview dir", "dir", dir, "err", err)
		return
	}

	clipMs := int64(media.DefaultPreviewSeconds * 1000)
	var stored int
	for _, chapter := range r.chapters {
		if ctx.Err() != nil {
			return
		}
		startMs := chapter.StartMs
		endMs := startMs + clipMs
		if r.job.DurationSeconds > 0 {
			if limit := int64(r.job.DurationSeconds * 1000); endMs > limit {
				endMs = limit
			}
		}
		if endMs <= startMs {
			continue
		}

		out := filepath.Join(dir, fmt.Sprintf("%s_%d.mp4", r.job.ID, startMs))
		err := p.previewer.Generate(ctx, source, out, float64(startMs)/1000, float64(endMs-startMs)/1000)
		if err == nil {
			_, err = p.store.UploadPreview(ctx, r.job.ID, out, startMs, endMs)
		}
		os.Remove(out)
		if err != nil {
			logger.Warn("preview failed", "start_ms", startMs, "err", err)
			continue
		}
		stored++
	}
	logger.Info("previews stored", "previews", stored, "chapters", len(r.chapters))
}
