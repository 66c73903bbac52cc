package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/Mohit888790/clipbrain"
	"github.com/Mohit888790/clipbrain/blob"
	"github.com/Mohit888790/clipbrain/config"
	"github.com/Mohit888790/clipbrain/ingestion"
	"github.com/Mohit888790/clipbrain/intake"
	"github.com/Mohit888790/clipbrain/media"
	"github.com/Mohit888790/clipbrain/queue"
	"github.com/Mohit888790/clipbrain/source"
	"github.com/Mohit888790/clipbrain/transcribe"
)

// services holds everything a command may need. Fields are filled lazily by
// the open helpers so read-only commands never touch the queue or tools.
type services struct {
	cfg    *config.Config
	db     *clipbrain.Database
	blobs  *blob.Store
	redis  *redis.Client
	queue  queue.Queue
	logger *slog.Logger
}

func openServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	opts := []clipbrain.DatabaseOption{
		clipbrain.WithAIConfig(cfg.AIConfig()),
		clipbrain.WithLogger(logger),
	}
	if cfg.Store == config.StorePostgres {
		opts = append(opts, clipbrain.WithPostgres(cfg.PostgresURL))
	}
	db, err := clipbrain.NewDatabase(ctx, cfg.DataDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	blobs, err := blob.NewStore(cfg.BlobDir, cfg.PublicURL, []byte(cfg.SigningSecret), blob.WithLogger(logger))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	svc := &services{cfg: cfg, db: db, blobs: blobs, logger: logger}
	if cfg.RedisAddr != "" {
		svc.redis = queue.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	return svc, nil
}

// openQueue uses the Redis stream when Redis is configured. The in-memory
// queue only connects producers and consumers inside one process.
func (s *services) openQueue() (queue.Queue, error) {
	if s.queue != nil {
		return s.queue, nil
	}
	if s.redis == nil {
		s.queue = queue.NewMemoryQueue(s.cfg.QueueSize)
		return s.queue, nil
	}
	q, err := queue.NewRedisQueue(s.redis, queue.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("open redis queue: %w", err)
	}
	s.queue = q
	return q, nil
}

func (s *services) intake(publisher intake.Publisher) (*intake.Service, error) {
	platforms, err := s.cfg.Platforms()
	if err != nil {
		return nil, err
	}
	return s.db.NewIntake(publisher, intake.WithResolver(source.NewResolver(platforms...)))
}

func (s *services) pipeline() (*ingestion.Pipeline, error) {
	cfg := s.cfg
	downloads := filepath.Join(cfg.WorkDir, "downloads")
	downloader, err := media.NewDownloader(
		media.WithDownloadDir(downloads),
		media.WithYtDlpBinary(cfg.YtDlpPath),
		media.WithDownloaderLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	transcriber, err := transcribe.NewClient(cfg.DeepgramAPIKey,
		transcribe.WithModel(cfg.DeepgramModel),
		transcribe.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	opts := []ingestion.Option{
		ingestion.WithInspector(media.NewInspector(cfg.FFprobePath)),
		ingestion.WithEmbedInterval(cfg.EmbedInterval),
		ingestion.WithSignedURLTTL(cfg.TranscribeTTL),
	}
	if cfg.Previews {
		previews := filepath.Join(cfg.WorkDir, "previews")
		if err := os.MkdirAll(previews, 0o755); err != nil {
			return nil, fmt.Errorf("create preview dir: %w", err)
		}
		opts = append(opts, ingestion.WithPreviewGenerator(media.NewPreviewGenerator(cfg.FFmpegPath), previews))
	}
	return s.db.NewIngestionPipeline(downloader, s.blobs, transcriber, opts...)
}

func (s *services) sweeper(pipeline *ingestion.Pipeline) (*ingestion.Sweeper, error) {
	opts := []ingestion.SweeperOption{
		ingestion.WithStaleAfter(s.cfg.StaleAfter),
		ingestion.WithSchedule(s.cfg.SweepSchedule),
	}
	if pipeline != nil {
		opts = append(opts, ingestion.WithActiveJobs(pipeline.Running))
	}
	return s.db.NewSweeper(opts...)
}

func (s *services) Close() error {
	var errs []error
	// A Redis queue owns the client and closes it.
	_, ownsClient := s.queue.(*queue.RedisQueue)
	if s.queue != nil {
		errs = append(errs, s.queue.Close())
	}
	if s.redis != nil && !ownsClient {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}
