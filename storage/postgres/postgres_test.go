package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLiteral(t *testing.T) {
	assert.Equal(t, "[]", ToLiteral(nil))
	assert.Equal(t, "[1,-0.5,0.25]", ToLiteral([]float32{1, -0.5, 0.25}))
	assert.Nil(t, literalOrNil(nil))
}

func TestParseLiteral(t *testing.T) {
	v, err := ParseLiteral("[1,-0.5, 0.25]")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -0.5, 0.25}, v)

	v, err = ParseLiteral(ToLiteral([]float32{0.1, 0.2}))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, v)

	v, err = ParseLiteral("[]")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = ParseLiteral("1,2")
	assert.Error(t, err)
	_, err = ParseLiteral("[1,x]")
	assert.Error(t, err)
}

// openTestDB connects to CLIPBRAIN_TEST_POSTGRES_URL or skips.
func openTestDB(t *testing.T) *storage.Repositories {
	t.Helper()
	dsn := os.Getenv("CLIPBRAIN_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("CLIPBRAIN_TEST_POSTGRES_URL not set")
	}
	db, err := NewDB(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return NewRepositories(db)
}

func TestPostgresJobLifecycle(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()

	hash := uuid.NewString()
	job := &core.VideoJob{
		ID:               uuid.NewString(),
		SourceURL:        "https://youtu.be/x",
		CanonicalURLHash: hash,
		Platform:         core.PlatformYouTube,
		Status:           core.StatusQueued,
	}
	require.NoError(t, repos.Jobs.CreateJob(ctx, job))
	assert.ErrorIs(t, repos.Jobs.CreateJob(ctx, job), storage.ErrDuplicateKey)

	job.Status = core.StatusFailed
	job.FailReason = core.FailDownload
	require.NoError(t, repos.Jobs.UpdateJob(ctx, job))

	got, err := repos.Jobs.FindByCanonicalHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, core.StateFailed, got.State())
	assert.Equal(t, core.FailDownload, got.FailReason)
}

func TestPostgresJobTransition(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()

	job := &core.VideoJob{
		ID:               uuid.NewString(),
		SourceURL:        "https://youtu.be/y",
		CanonicalURLHash: uuid.NewString(),
		Platform:         core.PlatformYouTube,
		Status:           core.StatusQueued,
	}
	require.NoError(t, repos.Jobs.CreateJob(ctx, job))

	job.Status, job.CurrentStage = core.StateDownloading.Fields()
	require.NoError(t, repos.Jobs.TransitionJob(ctx, job, core.StateQueued))
	assert.ErrorIs(t, repos.Jobs.TransitionJob(ctx, job, core.StateQueued), storage.ErrConflict)

	swept := *job
	swept.Status, swept.CurrentStage = core.StatusFailed, core.StageNone
	swept.FailReason = core.FailPipelineInterrupted
	require.NoError(t, repos.Jobs.TransitionJob(ctx, &swept, core.StateDownloading))

	job.Status, job.CurrentStage = core.StateUploading.Fields()
	assert.ErrorIs(t, repos.Jobs.TransitionJob(ctx, job, core.StateDownloading), storage.ErrConflict)

	got, err := repos.Jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StateFailed, got.State())

	missing := *job
	missing.ID = uuid.NewString()
	assert.ErrorIs(t, repos.Jobs.TransitionJob(ctx, &missing, core.StateDownloading), storage.ErrNotFound)
}

func TestPostgresChunksAndSimilarity(t *testing.T) {
	repos := openTestDB(t)
	ctx := context.Background()

	video := uuid.NewString()
	text := "pgvector " + video
	require.NoError(t, repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{
		VideoID: video, StartMs: 0, EndMs: 1000, Text: text, Embedding: []float32{1, 0, 0},
	}))
	require.NoError(t, repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{
		VideoID: video, StartMs: 1000, EndMs: 2000, Text: "pending " + video,
	}))

	emb, err := repos.Chunks.FindEmbeddingByTextHash(ctx, core.HashText(text))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, emb)

	chunks, err := repos.Chunks.ListChunksByVideo(ctx, video)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Nil(t, chunks[1].Embedding)

	require.NoError(t, repos.Chunks.UpdateChunkEmbedding(ctx, video, 1000, []float32{0, 1, 0}))

	hits, err := repos.Chunks.FindSimilar(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)

	// A zero vector has no direction; its similarity is 0, never NaN.
	hits, err = repos.Chunks.FindSimilar(ctx, []float32{0, 0, 0}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Equal(t, float32(0), h.Score)
	}
}
