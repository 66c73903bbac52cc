package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// JobSource delivers job ids to a Runner. Implemented by the queue package.
type JobSource interface {
	Consume(ctx context.Context) (<-chan string, error)
}

// Runner executes pipeline runs for queued job ids on a fixed-size pool.
type Runner struct {
	pipeline *Pipeline
	source   JobSource
	poolSize int
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPoolSize sets the number of concurrent pipeline runs.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) RunnerOption {
	return func(r *Runner) {
		if size < 1 {
			size = 1
		}
		r.poolSize = size
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a runner feeding ids from source into pipeline.
func NewRunner(pipeline *Pipeline, source JobSource, opts ...RunnerOption) (*Runner, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if source == nil {
		return nil, errors.New("job source required")
	}
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	r := &Runner{
		pipeline: pipeline,
		source:   source,
		poolSize: poolSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "runner")
	return r, nil
}

// Run consumes job ids until ctx is done or the source closes, then waits
// for in-flight runs. Cancelling ctx interrupts those runs, which record
// themselves as failed.
func (r *Runner) Run(ctx context.Context) error {
	pool, err := ants.NewPool(r.poolSize)
	if err != nil {
		return err
	}
	defer pool.Release()

	ids, err := r.source.Consume(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("runner started", "pool_size", r.poolSize)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping")
			return nil
		case id, ok := <-ids:
			if !ok {
				r.logger.Info("job source closed")
				return nil
			}
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				r.execute(ctx, id)
			})
			if submitErr != nil {
				wg.Done()
				r.logger.Error("failed to schedule job", "job", id, "err", submitErr)
			}
		}
	}
}

func (r *Runner) execute(ctx context.Context, jobID string) {
	err := r.pipeline.Run(ctx, jobID)
	switch {
	case err == nil:
	case errors.Is(err, ErrJobInProgress), errors.Is(err, ErrJobNotQueued):
		// Redelivered id; the job is owned elsewhere or already handled.
		r.logger.Debug("skipping job", "job", jobID, "err", err)
	case errors.Is(err, ErrJobSuperseded):
		r.logger.Warn("run abandoned", "job", jobID, "err", err)
	default:
		r.logger.Error("job failed", "job", jobID, "err", err)
	}
}
