package ingestion

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/queue"
)

func TestRunnerProcessesQueuedJobs(t *testing.T) {
	h := newHarness(t)
	h.createJob(t, "job-1")
	h.createJob(t, "job-2")
	p := h.pipeline(t)

	q := queue.NewMemoryQueue(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Publish(ctx, "job-1"))
	require.NoError(t, q.Publish(ctx, "job-2"))
	require.NoError(t, q.Publish(ctx, "job-1"))

	runner, err := NewRunner(p, q, WithPoolSize(2),
		WithRunnerLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		return h.job(t, "job-1").Status == core.StatusDone && h.job(t, "job-2").Status == core.StatusDone
	}, 10*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestNewRunnerRequiresPipeline(t *testing.T) {
	_, err := NewRunner(nil, queue.NewMemoryQueue(1))
	assert.ErrorIs(t, err, ErrPipelineRequired)
}
