package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mohit888790/clipbrain/ai"
	"github.com/Mohit888790/clipbrain/chunker"
	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
)

const (
	// DefaultUploadRetryDelay is the wait before the single upload retry.
	DefaultUploadRetryDelay = 10 * time.Second

	// DefaultTranscribeRetryDelay is the wait before the single transcription retry.
	DefaultTranscribeRetryDelay = 10 * time.Second

	// DefaultEmbedInterval spaces embedding provider calls.
	DefaultEmbedInterval = time.Second

	// DefaultSignedURLTTL is the lifetime of the URL handed to the transcriber.
	DefaultSignedURLTTL = time.Hour

	// stageAttempts bounds calls to an external dependency per stage.
	stageAttempts = 2
)

// Pipeline runs ingestion jobs. It is safe for concurrent use; at most one
// run per job id is active at a time.
type Pipeline struct {
	repos       *storage.Repositories
	downloader  Downloader
	inspector   Inspector
	store       ObjectStore
	transcriber Transcriber
	notes       ai.NotesGenerator
	embedder    ai.Embedder
	previewer   PreviewGenerator
	chunker     *chunker.Chunker

	uploadRetryDelay     time.Duration
	transcribeRetryDelay time.Duration
	embedInterval        time.Duration
	signedURLTTL         time.Duration
	previewDir           string

	mu       sync.Mutex
	inflight map[string]struct{}

	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithInspector backfills metadata the downloader did not report.
func WithInspector(inspector Inspector) Option {
	return func(p *Pipeline) error {
		p.inspector = inspector
		return nil
	}
}

// WithPreviewGenerator enables the previews stage.
// previewDir holds clips between generation and upload.
func WithPreviewGenerator(generator PreviewGenerator, previewDir string) Option {
	return func(p *Pipeline) error {
		p.previewer = generator
		p.previewDir = previewDir
		return nil
	}
}

// WithChunker replaces the default transcript chunker.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c == nil {
			return errors.New("chunker cannot be nil")
		}
		p.chunker = c
		return nil
	}
}

// WithUploadRetryDelay sets the wait before retrying a failed upload.
func WithUploadRetryDelay(d time.Duration) Option {
	return func(p *Pipeline) error {
		p.uploadRetryDelay = d
		return nil
	}
}

// WithTranscribeRetryDelay sets the wait before retrying a failed transcription.
func WithTranscribeRetryDelay(d time.Duration) Option {
	return func(p *Pipeline) error {
		p.transcribeRetryDelay = d
		return nil
	}
}

// WithEmbedInterval sets the minimum spacing between embedding provider calls.
// Zero disables pacing.
func WithEmbedInterval(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			return fmt.Errorf("embed interval must not be negative, got %s", d)
		}
		p.embedInterval = d
		return nil
	}
}

// WithSignedURLTTL sets the lifetime of the media URL given to the transcriber.
func WithSignedURLTTL(ttl time.Duration) Option {
	return func(p *Pipeline) error {
		if ttl <= 0 {
			return fmt.Errorf("signed URL TTL must be positive, got %s", ttl)
		}
		p.signedURLTTL = ttl
		return nil
	}
}

// NewPipeline creates a pipeline over the given repositories and collaborators.
func NewPipeline(
	repos *storage.Repositories,
	downloader Downloader,
	store ObjectStore,
	transcriber Transcriber,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if repos == nil || repos.Jobs == nil || repos.Transcripts == nil || repos.Notes == nil || repos.Chunks == nil {
		return nil, ErrRepositoriesRequired
	}
	if downloader == nil {
		return nil, ErrDownloaderRequired
	}
	if store == nil {
		return nil, ErrObjectStoreRequired
	}
	if transcriber == nil {
		return nil, ErrTranscriberRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	p := &Pipeline{
		repos:                repos,
		downloader:           downloader,
		store:                store,
		transcriber:          transcriber,
		notes:                provider.NotesGenerator(),
		embedder:             provider.Embedder(),
		chunker:              chunker.Default(),
		uploadRetryDelay:     DefaultUploadRetryDelay,
		transcribeRetryDelay: DefaultTranscribeRetryDelay,
		embedInterval:        DefaultEmbedInterval,
		signedURLTTL:         DefaultSignedURLTTL,
		inflight:             make(map[string]struct{}),
		logger:               slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// run carries the state of one pipeline execution between stages.
type run struct {
	job        *core.VideoJob
	mediaPath  string
	transcript string
	words      []core.WordTimestamp
	chapters   []core.Chapter
	logger     *slog.Logger
}

// Run executes the pipeline for a queued job. It returns ErrJobInProgress if
// another run for the job is active in this pipeline. Every state write is
// conditional on the state this run last wrote, so a job claimed by another
// process or failed by a sweeper stops the run with ErrJobSuperseded. Any
// other failure is written to the job before Run returns it; a cancelled run
// is recorded as interrupted.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	if !p.acquire(jobID) {
		return fmt.Errorf("%w: %s", ErrJobInProgress, jobID)
	}
	defer p.release(jobID)

	job, err := p.repos.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if state := job.State(); state != core.StateQueued {
		return fmt.Errorf("%w: %s is %s", ErrJobNotQueued, jobID, state)
	}

	r := &run{job: job, logger: p.logger.With("job", jobID)}
	r.logger.Info("pipeline started", "url", job.SourceURL, "platform", job.Platform)
	start := time.Now()

	if err := p.execute(ctx, r); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Another writer owns the job now; its state stands.
			r.logger.Warn("job changed outside this run, abandoning", "err", err)
			return fmt.Errorf("%w: %w", ErrJobSuperseded, err)
		}
		return p.fail(ctx, r, err)
	}

	r.logger.Info("pipeline finished", "duration", time.Since(start))
	return nil
}

func (p *Pipeline) execute(ctx context.Context, r *run) error {
	steps := []struct {
		state core.JobState
		fn    func(context.Context, *run) error
	}{
		{core.StateDownloading, p.download},
		{core.StateUploading, p.upload},
		{core.StateTranscribing, p.transcribe},
		{core.StateGeneratingNotes, p.generateNotes},
		{core.StateEmbedding, p.embed},
	}
	for _, step := range steps {
		if err := p.advance(ctx, r.job, step.state); err != nil {
			return err
		}
		if err := step.fn(ctx, r); err != nil {
			return err
		}
	}

	if p.previewer != nil && len(r.chapters) > 0 {
		if err := p.advance(ctx, r.job, core.StatePreviewing); err != nil {
			return err
		}
		p.generatePreviews(ctx, r)
	}

	return p.advance(ctx, r.job, core.StateDone)
}

// advance moves the job to the next state with a single conditional write.
// Metadata gathered by the previous stage is written along with it. The
// write fails with storage.ErrConflict if the stored job has left the state
// this run last wrote.
func (p *Pipeline) advance(ctx context.Context, job *core.VideoJob, to core.JobState) error {
	from := job.State()
	if !core.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, from, to)
	}
	status, stage := job.Status, job.CurrentStage
	job.Status, job.CurrentStage = to.Fields()
	if err := p.repos.Jobs.TransitionJob(ctx, job, from); err != nil {
		job.Status, job.CurrentStage = status, stage
		return fmt.Errorf("write %s state: %w", to, err)
	}
	return nil
}

// fail records the failure on the job and returns the cause. The write uses
// a context detached from cancellation so an interrupted run never stays
// in processing.
func (p *Pipeline) fail(ctx context.Context, r *run, cause error) error {
	from := r.job.State()
	stage := r.job.CurrentStage
	reason := failReason(ctx, cause)

	r.job.Status = core.StatusFailed
	r.job.CurrentStage = core.StageNone
	r.job.FailReason = reason

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.repos.Jobs.TransitionJob(writeCtx, r.job, from); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			r.logger.Warn("job changed outside this run, failure not recorded", "reason", reason, "err", err)
			return errors.Join(cause, fmt.Errorf("%w: %w", ErrJobSuperseded, err))
		}
		r.logger.Error("failed to record job failure", "reason", reason, "err", err)
		return errors.Join(cause, fmt.Errorf("record failure: %w", err))
	}

	r.logger.Warn("pipeline failed", "stage", stage, "reason", reason, "err", cause)
	return cause
}

func failReason(ctx context.Context, cause error) core.FailReason {
	if ctx.Err() != nil {
		return core.FailPipelineInterrupted
	}
	var stageErr *StageError
	if errors.As(cause, &stageErr) && stageErr.Reason != core.FailNone {
		return stageErr.Reason
	}
	return core.FailDownload
}

func (p *Pipeline) acquire(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[jobID]; busy {
		return false
	}
	p.inflight[jobID] = struct{}{}
	return true
}

func (p *Pipeline) release(jobID string) {
	p.mu.Lock()
	delete(p.inflight, jobID)
	p.mu.Unlock()
}

// newEmbedLimiter paces provider calls. The first call is never delayed.
func newEmbedLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Running reports whether a run for jobID is active in this pipeline.
func (p *Pipeline) Running(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inflight[jobID]
	return ok
}
