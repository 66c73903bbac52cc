package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Mohit888790/clipbrain/ai"
	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
)

// Config holds backfill settings.
type Config struct {
	// BatchSize is the number of chunks sent per embedding call.
	BatchSize int

	// ReportInterval is how many chunks pass between progress lines.
	ReportInterval int

	// MaxAttempts bounds each batch embedding call.
	MaxAttempts int

	// RetryDelay is the first backoff step; it doubles per attempt.
	RetryDelay time.Duration
}

// DefaultConfig returns the default backfill settings.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxAttempts:    4,
		RetryDelay:     2 * time.Second,
	}
}

// Result summarizes a backfill run.
type Result struct {
	Pending  int
	Reused   int
	Embedded int
	Elapsed  time.Duration
}

// Backfiller embeds every stored chunk that has no embedding.
type Backfiller struct {
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *ChunkIterator
	logger    *slog.Logger
}

// NewBackfiller creates a backfiller writing progress to progress
// (typically os.Stderr). A nil config uses DefaultConfig.
func NewBackfiller(chunks storage.ChunkRepository, embedder ai.Embedder, config *Config, progress io.Writer, logger *slog.Logger) (*Backfiller, error) {
	if chunks == nil {
		return nil, ErrChunksRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "backfill")

	return &Backfiller{
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(chunks, embedder, config.MaxAttempts, config.RetryDelay, logger),
		iterator:  NewChunkIterator(chunks, config.BatchSize),
		logger:    logger,
	}, nil
}

// Run embeds pending chunks batch by batch. Stored batches stay stored
// when a later batch fails, so a rerun resumes where this one stopped.
func (b *Backfiller) Run(ctx context.Context) (*Result, error) {
	pending, err := b.iterator.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks without embeddings: %w", err)
	}

	result := &Result{Pending: len(pending)}
	if len(pending) == 0 {
		fmt.Fprintf(b.progress, "No chunks need embeddings\n")
		return result, nil
	}

	fmt.Fprintf(b.progress, "Backfilling embeddings for %d chunks (batch size: %d)\n",
		len(pending), b.iterator.batchSize)

	tracker := NewProgressTracker(b.progress, "chunks", len(pending), b.config.ReportInterval)
	tracker.Start()

	err = b.iterator.ForEach(ctx, pending, func(batch []*core.TranscriptChunk) error {
		stats, err := b.processor.Process(ctx, batch)
		result.Reused += stats.Reused
		result.Embedded += stats.Embedded
		tracker.Increment(stats.Reused + stats.Embedded)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		return nil
	})
	tracker.Finish()
	result.Elapsed = tracker.Elapsed()

	if err != nil {
		b.logger.Error("backfill stopped", "done", result.Reused+result.Embedded, "pending", result.Pending, "err", err)
		return result, err
	}

	b.logger.Info("backfill complete",
		"chunks", result.Pending,
		"reused", result.Reused,
		"embedded", result.Embedded,
		"elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}
