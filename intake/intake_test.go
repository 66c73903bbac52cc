package intake

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/queue"
	"github.com/Mohit888790/clipbrain/source"
	"github.com/Mohit888790/clipbrain/storage"
	badgerstore "github.com/Mohit888790/clipbrain/storage/badger"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string) error {
	return errors.New("broker down")
}

func setup(t *testing.T, publisher Publisher, opts ...Option) (*Service, *storage.Repositories) {
	t.Helper()
	repos, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	n := 0
	opts = append([]Option{WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("job-%d", n)
	})}, opts...)
	svc, err := NewService(repos.Jobs, publisher, opts...)
	require.NoError(t, err)
	return svc, repos
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(nil, queue.NewMemoryQueue(1))
	assert.ErrorIs(t, err, ErrJobsRequired)

	repos, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	_, err = NewService(repos.Jobs, nil)
	assert.ErrorIs(t, err, ErrPublisherRequired)
}

func TestSubmitCreatesAndEnqueues(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(4)
	svc, repos := setup(t, q)

	receipt, err := svc.Submit(ctx, "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "job-1", receipt.JobID)
	assert.Equal(t, core.StatusQueued, receipt.Status)
	assert.Equal(t, core.PlatformYouTube, receipt.Platform)
	assert.Equal(t, NotDuplicate, receipt.Duplicate)
	assert.Equal(t, 1, q.Len())

	job, err := repos.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusQueued, job.Status)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", job.SourceURL)
	assert.Equal(t, source.HashURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ"), job.CanonicalURLHash)
}

func TestSubmitDeduplicates(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue(4)
	svc, repos := setup(t, q)

	first, err := svc.Submit(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)

	again, err := svc.Submit(ctx, "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, first.JobID, again.JobID)
	assert.Equal(t, DuplicateInProgress, again.Duplicate)
	assert.Equal(t, 1, q.Len())

	job, err := repos.Jobs.GetJob(ctx, first.JobID)
	require.NoError(t, err)
	job.Status = core.StatusDone
	require.NoError(t, repos.Jobs.UpdateJob(ctx, job))

	done, err := svc.Submit(ctx, "https://m.youtube.com/shorts/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, first.JobID, done.JobID)
	assert.Equal(t, DuplicateExisting, done.Duplicate)
	assert.Equal(t, core.StatusDone, done.Status)
}

func TestSubmitAfterFailureCreatesFreshJob(t *testing.T) {
	ctx := context.Background()
	svc, repos := setup(t, queue.NewMemoryQueue(4))

	first, err := svc.Submit(ctx, "https://www.tiktok.com/@maker/video/123")
	require.NoError(t, err)

	job, err := repos.Jobs.GetJob(ctx, first.JobID)
	require.NoError(t, err)
	job.Status = core.StatusFailed
	job.FailReason = core.FailDownload
	require.NoError(t, repos.Jobs.UpdateJob(ctx, job))

	second, err := svc.Submit(ctx, "https://www.tiktok.com/@maker/video/123")
	require.NoError(t, err)
	assert.NotEqual(t, first.JobID, second.JobID)
	assert.Equal(t, NotDuplicate, second.Duplicate)
}

func TestSubmitRejectsBadURLs(t *testing.T) {
	svc, _ := setup(t, queue.NewMemoryQueue(1),
		WithResolver(source.NewResolver(core.PlatformYouTube)))

	_, err := svc.Submit(context.Background(), "nope")
	assert.ErrorIs(t, err, source.ErrInvalidURL)

	_, err = svc.Submit(context.Background(), "https://vimeo.com/1")
	assert.ErrorIs(t, err, source.ErrUnsupportedPlatform)

	_, err = svc.Submit(context.Background(), "https://www.instagram.com/p/abc/")
	assert.ErrorIs(t, err, source.ErrPlatformNotAllowed)
}

func TestSubmitEnqueueFailureAbandonsJob(t *testing.T) {
	ctx := context.Background()
	svc, repos := setup(t, failingPublisher{})

	_, err := svc.Submit(ctx, "https://youtu.be/dQw4w9WgXcQ")
	require.ErrorIs(t, err, ErrEnqueueFailed)

	job, err := repos.Jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, job.Status)
	assert.Equal(t, core.FailPipelineInterrupted, job.FailReason)
}
