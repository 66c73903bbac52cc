package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohit888790/clipbrain/core"
)

func TestSweeper(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.createJob(t, "stale")
	h.createJob(t, "active")
	h.createJob(t, "queued")
	for _, id := range []string{"stale", "active"} {
		job := h.job(t, id)
		job.Status, job.CurrentStage = core.StateTranscribing.Fields()
		require.NoError(t, h.repos.Jobs.UpdateJob(ctx, job))
	}

	now := time.Now()
	sweeper, err := NewSweeper(h.repos.Jobs,
		WithStaleAfter(time.Hour),
		WithSweeperClock(func() time.Time { return now }),
		WithActiveJobs(func(id string) bool { return id == "active" }))
	require.NoError(t, err)

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "fresh jobs are left alone")

	now = now.Add(3 * time.Hour)
	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stale := h.job(t, "stale")
	assert.Equal(t, core.StatusFailed, stale.Status)
	assert.Equal(t, core.StageNone, stale.CurrentStage)
	assert.Equal(t, core.FailPipelineInterrupted, stale.FailReason)
	assert.Equal(t, core.StateTranscribing, h.job(t, "active").State())
	assert.Equal(t, core.StateQueued, h.job(t, "queued").State())
}

func TestSweeperStartRejectsBadSchedule(t *testing.T) {
	h := newHarness(t)
	sweeper, err := NewSweeper(h.repos.Jobs, WithSchedule("not a schedule"))
	require.NoError(t, err)

	assert.Error(t, sweeper.Start(context.Background()))
	sweeper.Stop()
}
