package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
)

const (
	// DefaultStaleAfter is how long a job may sit in processing without a
	// state write before it is considered orphaned.
	DefaultStaleAfter = 2 * time.Hour

	// DefaultSweepSchedule is the cron schedule of periodic sweeps.
	DefaultSweepSchedule = "@every 10m"
)

// Sweeper fails jobs left in processing by a worker that stopped mid-run.
// Jobs are not resumed; resubmitting the URL creates a fresh job.
type Sweeper struct {
	jobs       storage.JobRepository
	staleAfter time.Duration
	schedule   string
	active     func(jobID string) bool
	now        func() time.Time
	cron       *cron.Cron
	logger     *slog.Logger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithStaleAfter sets the staleness window.
func WithStaleAfter(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.staleAfter = d
	}
}

// WithSchedule sets the cron schedule, e.g. "@every 5m" or "*/15 * * * *".
func WithSchedule(schedule string) SweeperOption {
	return func(s *Sweeper) {
		s.schedule = schedule
	}
}

// WithActiveJobs skips jobs for which active reports true, typically
// Pipeline.Running of the local worker.
func WithActiveJobs(active func(jobID string) bool) SweeperOption {
	return func(s *Sweeper) {
		s.active = active
	}
}

// WithSweeperClock overrides the time source.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.now = now
	}
}

// WithSweeperLogger sets the logger.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSweeper creates a sweeper over the job repository.
func NewSweeper(jobs storage.JobRepository, opts ...SweeperOption) (*Sweeper, error) {
	if jobs == nil {
		return nil, ErrRepositoriesRequired
	}
	s := &Sweeper{
		jobs:       jobs,
		staleAfter: DefaultStaleAfter,
		schedule:   DefaultSweepSchedule,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.staleAfter < 0 {
		return nil, fmt.Errorf("stale window must not be negative, got %s", s.staleAfter)
	}
	s.logger = s.logger.With("component", "sweeper")
	return s, nil
}

// Sweep fails every processing job whose last write is older than the
// staleness window and returns how many were failed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	jobs, err := s.jobs.ListJobsByStatus(ctx, core.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("list processing jobs: %w", err)
	}

	cutoff := s.now().Add(-s.staleAfter)
	var swept int
	var errs []error
	for _, job := range jobs {
		if job.UpdatedAt.After(cutoff) {
			continue
		}
		if s.active != nil && s.active(job.ID) {
			continue
		}
		from, stage, lastUpdate := job.State(), job.CurrentStage, job.UpdatedAt
		job.Status = core.StatusFailed
		job.CurrentStage = core.StageNone
		job.FailReason = core.FailPipelineInterrupted
		if err := s.jobs.TransitionJob(ctx, job, from); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				// The run advanced between the listing and this write.
				s.logger.Debug("job moved on, not sweeping", "job", job.ID, "err", err)
				continue
			}
			errs = append(errs, fmt.Errorf("fail job %s: %w", job.ID, err))
			continue
		}
		swept++
		s.logger.Warn("failed orphaned job", "job", job.ID, "stage", stage, "last_update", lastUpdate)
	}
	return swept, errors.Join(errs...)
}

// Start sweeps once immediately, then on the configured schedule until Stop.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("initial sweep failed", "err", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		if n, err := s.Sweep(ctx); err != nil {
			s.logger.Error("sweep failed", "err", err)
		} else if n > 0 {
			s.logger.Info("sweep finished", "failed_jobs", n)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	s.cron = c
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}
