package storage

import (
	"context"

	"github.com/Mohit888790/clipbrain/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// JobRepository persists VideoJob records.
type JobRepository interface {
	Repository

	// CreateJob stores a new job. Sets CreatedAt and UpdatedAt.
	// Returns ErrDuplicateKey if a job with the same ID exists.
	CreateJob(ctx context.Context, job *core.VideoJob) error

	// GetJob retrieves a job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id string) (*core.VideoJob, error)

	// UpdateJob replaces a job's fields in a single durable write.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.VideoJob) error

	// TransitionJob writes job only if the stored job is still in state
	// from, checked and written atomically. Returns ErrConflict when the
	// stored state differs and ErrNotFound if the job doesn't exist.
	TransitionJob(ctx context.Context, job *core.VideoJob, from core.JobState) error

	// FindByCanonicalHash returns the most recently created job for a
	// canonical URL hash. Returns ErrNotFound if there is none.
	FindByCanonicalHash(ctx context.Context, hash string) (*core.VideoJob, error)

	// ListJobsByStatus returns all jobs with the given status.
	ListJobsByStatus(ctx context.Context, status core.Status) ([]*core.VideoJob, error)

	// ListJobs returns every job.
	ListJobs(ctx context.Context) ([]*core.VideoJob, error)
}

// TranscriptRepository persists full transcripts, one per video.
type TranscriptRepository interface {
	Repository

	// SaveTranscript stores or replaces the transcript for a video.
	SaveTranscript(ctx context.Context, transcript *core.Transcript) error

	// GetTranscript retrieves the transcript for a video.
	// Returns ErrNotFound if the transcript doesn't exist.
	GetTranscript(ctx context.Context, videoID string) (*core.Transcript, error)

	// ForEachTranscript calls fn for every stored transcript.
	// Iteration stops at the first error returned by fn.
	ForEachTranscript(ctx context.Context, fn func(*core.Transcript) error) error
}

// NotesRepository persists notes, one record per video.
type NotesRepository interface {
	Repository

	// SaveNotes stores or replaces the notes for a video.
	SaveNotes(ctx context.Context, notes *core.Notes) error

	// GetNotes retrieves the notes for a video.
	// Returns ErrNotFound if no notes exist.
	GetNotes(ctx context.Context, videoID string) (*core.Notes, error)

	// UpdateKeywords replaces the keyword list of existing notes.
	// Returns ErrNotFound if no notes exist.
	UpdateKeywords(ctx context.Context, videoID string, keywords []string) error

	// ListNotes returns the notes of every video.
	ListNotes(ctx context.Context) ([]*core.Notes, error)
}

// ChunkRepository persists transcript chunks keyed by (video id, start ms)
// with a secondary lookup by text hash.
type ChunkRepository interface {
	Repository

	// SaveChunk stores or replaces a chunk and maintains the text-hash index.
	SaveChunk(ctx context.Context, chunk *core.TranscriptChunk) error

	// FindEmbeddingByTextHash returns the embedding of any stored chunk with
	// the given text hash and a non-nil embedding. Returns nil, nil on a miss.
	FindEmbeddingByTextHash(ctx context.Context, textHash string) ([]float32, error)

	// ListChunksByVideo returns a video's chunks ordered by start time.
	ListChunksByVideo(ctx context.Context, videoID string) ([]*core.TranscriptChunk, error)

	// ListChunksWithoutEmbedding returns every chunk whose embedding is nil.
	ListChunksWithoutEmbedding(ctx context.Context) ([]*core.TranscriptChunk, error)

	// UpdateChunkEmbedding sets the embedding of an existing chunk.
	// Returns ErrNotFound if the chunk doesn't exist.
	UpdateChunkEmbedding(ctx context.Context, videoID string, startMs int64, embedding []float32) error

	// FindSimilar scans every embedded chunk and returns the limit most
	// cosine-similar to vector, highest first.
	FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.ScoredChunk, error)

	// ForEachChunk calls fn for every stored chunk.
	ForEachChunk(ctx context.Context, fn func(*core.TranscriptChunk) error) error
}

// Repositories groups the repositories a deployment needs.
type Repositories struct {
	Jobs        JobRepository
	Transcripts TranscriptRepository
	Notes       NotesRepository
	Chunks      ChunkRepository
}

// Close closes every non-nil repository and returns the first error.
func (r *Repositories) Close() error {
	var first error
	for _, repo := range []Repository{r.Chunks, r.Notes, r.Transcripts, r.Jobs} {
		if repo == nil {
			continue
		}
		if err := repo.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
