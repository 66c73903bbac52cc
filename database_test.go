package clipbrain

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohit888790/clipbrain/ai/mock"
	"github.com/Mohit888790/clipbrain/blob"
	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/ingestion"
	"github.com/Mohit888790/clipbrain/media"
	"github.com/Mohit888790/clipbrain/queue"
	"github.com/Mohit888790/clipbrain/search"
	"github.com/Mohit888790/clipbrain/transcribe"
)

func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(context.Background(), filepath.Join(t.TempDir(), "db"),
		WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		db := openTestDatabase(t)
		assert.NotNil(t, db.Repositories().Jobs)
		assert.NotNil(t, db.Repositories().Chunks)
		assert.NotNil(t, db.Provider())
		assert.NotNil(t, db.logger)
	})

	t.Run("default provider from config", func(t *testing.T) {
		db, err := NewDatabase(context.Background(), t.TempDir())
		require.NoError(t, err)
		require.NoError(t, db.Close())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

		db, err := NewDatabase(context.Background(), tmpFile, WithAIProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(context.Background(), t.TempDir(), WithAIProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db := openTestDatabase(t)

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		downloader, err := media.NewDownloader(media.WithDownloadDir(t.TempDir()))
		require.NoError(t, err)
		store, err := blob.NewStore(t.TempDir(), "http://localhost:8080", []byte("secret"))
		require.NoError(t, err)
		transcriber, err := transcribe.NewClient("key")
		require.NoError(t, err)

		pipeline, err := db.NewIngestionPipeline(downloader, store, transcriber)
		require.NoError(t, err)
		require.NotNil(t, pipeline)

		_, err = db.NewIngestionPipeline(nil, store, transcriber)
		assert.ErrorIs(t, err, ingestion.ErrDownloaderRequired)
	})

	t.Run("can create searcher", func(t *testing.T) {
		searcher, err := db.NewSearcher()
		require.NoError(t, err)
		_, err = searcher.Search(context.Background(), search.Query{Text: "anything"})
		require.NoError(t, err)
	})

	t.Run("can create sweeper", func(t *testing.T) {
		sweeper, err := db.NewSweeper()
		require.NoError(t, err)
		n, err := sweeper.Sweep(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("intake stores into this database", func(t *testing.T) {
		q := queue.NewMemoryQueue(1)
		svc, err := db.NewIntake(q)
		require.NoError(t, err)

		receipt, err := svc.Submit(context.Background(), "https://youtu.be/abcdefghijk")
		require.NoError(t, err)
		job, err := db.Repositories().Jobs.GetJob(context.Background(), receipt.JobID)
		require.NoError(t, err)
		assert.Equal(t, core.StatusQueued, job.Status)
	})

	t.Run("can backfill", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, db.Repositories().Chunks.SaveChunk(ctx, &core.TranscriptChunk{
			VideoID: "v1", StartMs: 0, EndMs: 1000, Text: "no vector yet",
		}))
		var progress bytes.Buffer
		b, err := db.NewBackfiller(nil, &progress)
		require.NoError(t, err)
		result, err := b.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Embedded)
	})
}
