package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/export"
	"github.com/Mohit888790/clipbrain/ingestion"
	"github.com/Mohit888790/clipbrain/intake"
	"github.com/Mohit888790/clipbrain/ratelimit"
	"github.com/Mohit888790/clipbrain/reembed"
	"github.com/Mohit888790/clipbrain/search"
	"github.com/Mohit888790/clipbrain/server"
	"github.com/Mohit888790/clipbrain/source"
)

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	q, err := svc.openQueue()
	if err != nil {
		return err
	}
	submitter, err := svc.intake(q)
	if err != nil {
		return err
	}
	searcher, err := svc.db.NewSearcher(search.WithURLSigner(svc.blobs, svc.cfg.PlaybackTTL))
	if err != nil {
		return err
	}
	limiter := ratelimit.New(ratelimit.WithRedis(svc.redis), ratelimit.WithLogger(svc.logger))
	srv, err := server.New(svc.db.Repositories(), submitter, searcher, svc.blobs,
		server.WithLogger(svc.logger),
		server.WithRateLimits(limiter, svc.cfg.IngestRateLimit, svc.cfg.SearchRateLimit),
		server.WithPlaybackTTL(svc.cfg.PlaybackTTL),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, svc.cfg.HTTPAddr)
	})
	if c.Bool("worker") {
		g.Go(func() error {
			return runWorker(gctx, svc, q)
		})
	}
	return g.Wait()
}

func workerCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	if svc.redis == nil {
		svc.logger.Warn("no redis configured; the worker only sees jobs submitted in this process")
	}
	q, err := svc.openQueue()
	if err != nil {
		return err
	}
	return runWorker(ctx, svc, q)
}

// runWorker drains the queue through the pipeline with the sweeper on its
// schedule, until ctx is done.
func runWorker(ctx context.Context, svc *services, jobs ingestion.JobSource) error {
	pipeline, err := svc.pipeline()
	if err != nil {
		return err
	}
	runner, err := ingestion.NewRunner(pipeline, jobs,
		ingestion.WithPoolSize(svc.cfg.Workers),
		ingestion.WithRunnerLogger(svc.logger),
	)
	if err != nil {
		return err
	}
	sweeper, err := svc.sweeper(pipeline)
	if err != nil {
		return err
	}
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	return runner.Run(ctx)
}

func ingestCommand(c *cli.Context) error {
	rawURL := c.Args().First()
	if rawURL == "" {
		return errors.New("a video URL is required")
	}
	ctx, stop := signalContext(c)
	defer stop()

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	var publisher intake.Publisher = noopPublisher{}
	if !c.Bool("wait") {
		// With --wait this process runs the job, so it stays off the queue.
		if publisher, err = svc.openQueue(); err != nil {
			return err
		}
	}
	submitter, err := svc.intake(publisher)
	if err != nil {
		return err
	}
	receipt, err := submitter.Submit(ctx, rawURL)
	if err != nil {
		return err
	}

	if receipt.Duplicate != "" {
		fmt.Printf("Duplicate (%s): job %s is %s\n", receipt.Duplicate, receipt.JobID, receipt.Status)
		return nil
	}
	fmt.Printf("Queued job %s (%s)\n", receipt.JobID, receipt.Platform)
	if !c.Bool("wait") {
		return nil
	}
	return runJob(ctx, svc, receipt.JobID)
}

func runCommand(c *cli.Context) error {
	jobID := c.Args().First()
	if jobID == "" {
		return errors.New("a job id is required")
	}
	ctx, stop := signalContext(c)
	defer stop()

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	return runJob(ctx, svc, jobID)
}

func runJob(ctx context.Context, svc *services, jobID string) error {
	pipeline, err := svc.pipeline()
	if err != nil {
		return err
	}
	start := time.Now()
	runErr := pipeline.Run(ctx, jobID)

	job, err := svc.db.Repositories().Jobs.GetJob(context.WithoutCancel(ctx), jobID)
	if err != nil {
		return errors.Join(runErr, err)
	}
	printJob(job)
	fmt.Printf("Finished in %s\n", time.Since(start).Round(time.Millisecond))
	return runErr
}

func statusCommand(c *cli.Context) error {
	jobID := c.Args().First()
	if jobID == "" {
		return errors.New("a job id is required")
	}
	svc, err := openServices(c.Context)
	if err != nil {
		return err
	}
	defer svc.Close()

	job, err := svc.db.Repositories().Jobs.GetJob(c.Context, jobID)
	if err != nil {
		return err
	}
	printJob(job)
	return nil
}

func printJob(job *core.VideoJob) {
	fmt.Printf("Job %s: %s", job.ID, job.State())
	if job.FailReason != core.FailNone {
		fmt.Printf(" (%s)", job.FailReason)
	}
	fmt.Println()
	if job.Title != "" {
		fmt.Printf("  Title: %s\n", job.Title)
	}
	fmt.Printf("  Source: %s\n", job.SourceURL)
	fmt.Printf("  Updated: %s\n", job.UpdatedAt.Format(time.RFC3339))
}

func searchCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("a query is required")
	}
	platforms, err := source.ParsePlatforms(strings.Join(c.StringSlice("platform"), ","))
	if err != nil {
		return err
	}

	svc, err := openServices(c.Context)
	if err != nil {
		return err
	}
	defer svc.Close()

	searcher, err := svc.db.NewSearcher(search.WithURLSigner(svc.blobs, svc.cfg.PlaybackTTL))
	if err != nil {
		return err
	}
	results, err := searcher.Search(c.Context, search.Query{
		Text:      text,
		TopK:      c.Int("top-k"),
		Tags:      c.StringSlice("tag"),
		Platforms: platforms,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: [%0.3f] %s @ %s\n", i+1, hit.Score, hit.Title, formatOffset(hit.StartMs))
		fmt.Printf("   %s\n", hit.Text)
		if hit.DeepLink != "" {
			fmt.Printf("   %s\n", hit.DeepLink)
		}
	}
	return nil
}

func formatOffset(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func backfillCommand(c *cli.Context) error {
	ctx, stop := signalContext(c)
	defer stop()

	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	config := reembed.DefaultConfig()
	config.BatchSize = c.Int("batch-size")
	config.ReportInterval = c.Int("report-interval")
	config.MaxAttempts = c.Int("max-retries")

	backfiller, err := svc.db.NewBackfiller(config, os.Stdout)
	if err != nil {
		return err
	}
	result, err := backfiller.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Embedded %d chunks, reused %d cached embeddings in %s\n",
		result.Embedded, result.Reused, result.Elapsed.Round(time.Millisecond))
	return nil
}

func exportCommand(c *cli.Context) error {
	svc, err := openServices(c.Context)
	if err != nil {
		return err
	}
	defer svc.Close()

	path := c.String("output")
	if path == "" {
		path = export.Filename(time.Now())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(c.Context, svc.db.Repositories(), f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func sweepCommand(c *cli.Context) error {
	svc, err := openServices(c.Context)
	if err != nil {
		return err
	}
	defer svc.Close()

	sweeper, err := svc.sweeper(nil)
	if err != nil {
		return err
	}
	n, err := sweeper.Sweep(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Failed %d stale jobs\n", n)
	return nil
}

// noopPublisher accepts ids without delivering them.
type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string) error { return nil }
