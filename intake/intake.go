// Package intake turns a submitted URL into a queued ingestion job.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/source"
	"github.com/Mohit888790/clipbrain/storage"
)

var (
	// ErrJobsRequired is returned when no job repository is provided.
	ErrJobsRequired = errors.New("job repository required")

	// ErrPublisherRequired is returned when no publisher is provided.
	ErrPublisherRequired = errors.New("publisher required")

	// ErrEnqueueFailed wraps a failure to hand a stored job to the queue.
	ErrEnqueueFailed = errors.New("enqueue failed")
)

// Duplicate marks a receipt that points at an earlier job.
type Duplicate string

const (
	// NotDuplicate is the zero value: a new job was created.
	NotDuplicate Duplicate = ""
	// DuplicateExisting means the video was already ingested.
	DuplicateExisting Duplicate = "existing"
	// DuplicateInProgress means an earlier job is still queued or running.
	DuplicateInProgress Duplicate = "in_progress"
)

// Receipt is the answer to a submission.
type Receipt struct {
	JobID     string        `json:"job_id"`
	Status    core.Status   `json:"status"`
	Platform  core.Platform `json:"platform"`
	Duplicate Duplicate     `json:"duplicate,omitempty"`
}

// Publisher hands job ids to workers.
type Publisher interface {
	Publish(ctx context.Context, jobID string) error
}

// Service validates, de-duplicates and enqueues submissions.
type Service struct {
	jobs      storage.JobRepository
	publisher Publisher
	resolver  *source.Resolver
	newID     func() string
	logger    *slog.Logger

	// serializes the dedup check with job creation
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithResolver sets the URL resolver, which decides the allowed platforms.
func WithResolver(resolver *source.Resolver) Option {
	return func(s *Service) {
		s.resolver = resolver
	}
}

// WithIDGenerator replaces the uuid job id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates an intake service.
func NewService(jobs storage.JobRepository, publisher Publisher, opts ...Option) (*Service, error) {
	if jobs == nil {
		return nil, ErrJobsRequired
	}
	if publisher == nil {
		return nil, ErrPublisherRequired
	}
	s := &Service{
		jobs:      jobs,
		publisher: publisher,
		resolver:  source.NewResolver(),
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "intake")
	return s, nil
}

// Submit resolves rawURL and either returns the job already covering that
// video or creates and enqueues a new one. Failed jobs never block a
// resubmission.
func (s *Service) Submit(ctx context.Context, rawURL string) (*Receipt, error) {
	resolved, err := s.resolver.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	receipt, job, err := s.reserve(ctx, resolved)
	s.mu.Unlock()
	if err != nil || receipt != nil {
		return receipt, err
	}

	if err := s.publisher.Publish(ctx, job.ID); err != nil {
		s.abandon(ctx, job)
		return nil, fmt.Errorf("%w: %w", ErrEnqueueFailed, err)
	}

	s.logger.Info("job queued", "job", job.ID, "platform", job.Platform)
	return &Receipt{JobID: job.ID, Status: job.Status, Platform: job.Platform}, nil
}

// reserve returns a receipt for a duplicate, or the newly stored job.
func (s *Service) reserve(ctx context.Context, resolved *source.Resolved) (*Receipt, *core.VideoJob, error) {
	existing, err := s.jobs.FindByCanonicalHash(ctx, resolved.Hash)
	switch {
	case err == nil:
		if marker := duplicateOf(existing); marker != NotDuplicate {
			s.logger.Debug("duplicate submission", "job", existing.ID, "duplicate", marker)
			return &Receipt{
				JobID:     existing.ID,
				Status:    existing.Status,
				Platform:  existing.Platform,
				Duplicate: marker,
			}, nil, nil
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, nil, fmt.Errorf("failed to look up canonical hash: %w", err)
	}

	job := &core.VideoJob{
		ID:               s.newID(),
		SourceURL:        resolved.URL,
		CanonicalURLHash: resolved.Hash,
		Platform:         resolved.Platform,
		Status:           core.StatusQueued,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("failed to create job: %w", err)
	}
	return nil, job, nil
}

func duplicateOf(job *core.VideoJob) Duplicate {
	switch job.Status {
	case core.StatusDone:
		return DuplicateExisting
	case core.StatusQueued, core.StatusProcessing:
		return DuplicateInProgress
	default:
		return NotDuplicate
	}
}

// abandon fails a job that never reached the queue so it cannot shadow a
// later submission as in_progress.
func (s *Service) abandon(ctx context.Context, job *core.VideoJob) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	job.Status = core.StatusFailed
	job.CurrentStage = core.StageNone
	job.FailReason = core.FailPipelineInterrupted
	if err := s.jobs.TransitionJob(ctx, job, core.StateQueued); err != nil {
		s.logger.Error("failed to abandon unqueued job", "job", job.ID, "err", err)
	}
}
