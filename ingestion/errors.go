package ingestion

import (
	"errors"
	"fmt"

	"github.com/Mohit888790/clipbrain/core"
)

var (
	// ErrRepositoriesRequired is returned when repositories are not provided.
	ErrRepositoriesRequired = errors.New("repositories required")

	// ErrDownloaderRequired is returned when a downloader is not provided.
	ErrDownloaderRequired = errors.New("downloader required")

	// ErrObjectStoreRequired is returned when an object store is not provided.
	ErrObjectStoreRequired = errors.New("object store required")

	// ErrTranscriberRequired is returned when a transcriber is not provided.
	ErrTranscriberRequired = errors.New("transcriber required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrPipelineRequired is returned when a runner is created without a pipeline.
	ErrPipelineRequired = errors.New("pipeline required")

	// ErrJobInProgress is returned when a run for the same job is already active.
	ErrJobInProgress = errors.New("job already running")

	// ErrJobNotQueued is returned when Run is called for a job that has left the queue.
	ErrJobNotQueued = errors.New("job is not queued")

	// ErrJobSuperseded is returned when the stored job was changed by another
	// writer, such as a sweeper, while this run held it. The run stops
	// without writing.
	ErrJobSuperseded = errors.New("job changed by another writer")

	// ErrDownloadFailed wraps the downloader's diagnostic message.
	ErrDownloadFailed = errors.New("download failed")

	// ErrTranscriptionFailed wraps the transcription provider's message.
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// StageError is a classified stage failure. Reason is recorded verbatim as
// the job's fail reason.
type StageError struct {
	Stage  core.Stage
	Reason core.FailReason
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Reason, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
