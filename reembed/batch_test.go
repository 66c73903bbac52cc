package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohit888790/clipbrain/ai/mock"
	"github.com/Mohit888790/clipbrain/core"
)

func pendingChunks(t *testing.T, it *ChunkIterator) []*core.TranscriptChunk {
	t.Helper()
	pending, err := it.Pending(context.Background())
	require.NoError(t, err)
	return pending
}

func TestBatchProcessor_Process(t *testing.T) {
	chunks := setupTestDB(t)
	seedChunks(t, chunks, "v1", []string{"alpha", "beta"}, nil)
	embedder := mock.NewMockEmbedder()

	bp := NewBatchProcessor(chunks, embedder, 3, time.Millisecond, nil)
	stats, err := bp.Process(context.Background(), pendingChunks(t, NewChunkIterator(chunks, 10)))
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Embedded: 2}, stats)
	assert.Equal(t, 1, embedder.CallCount(), "one batch call")

	stored, err := chunks.ListChunksByVideo(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, mock.Vector("alpha"), stored[0].Embedding)
	assert.Equal(t, mock.Vector("beta"), stored[1].Embedding)
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	bp := NewBatchProcessor(setupTestDB(t), embedder, 3, time.Millisecond, nil)
	stats, err := bp.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats)
	assert.Zero(t, embedder.CallCount())
}

func TestBatchProcessor_ReusesCachedAndDeduplicates(t *testing.T) {
	chunks := setupTestDB(t)
	// chunk 0 is embedded; chunk 2 repeats its text, chunks 1 and 3 share one
	seedChunks(t, chunks, "v1", []string{"shared", "twice", "Shared", "twice"}, func(i int) bool { return i == 0 })

	var sent []string
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		sent = append(sent, texts...)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{0, 1, 0}
		}
		return out, nil
	}

	bp := NewBatchProcessor(chunks, embedder, 3, time.Millisecond, nil)
	stats, err := bp.Process(context.Background(), pendingChunks(t, NewChunkIterator(chunks, 10)))
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Reused: 1, Embedded: 2}, stats)
	assert.Equal(t, []string{"twice"}, sent)

	stored, err := chunks.ListChunksByVideo(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, stored[2].Embedding)
	assert.Equal(t, []float32{0, 1, 0}, stored[1].Embedding)
	assert.Equal(t, []float32{0, 1, 0}, stored[3].Embedding)
}

func TestBatchProcessor_RetriesThenSucceeds(t *testing.T) {
	chunks := setupTestDB(t)
	seedChunks(t, chunks, "v1", []string{"only"}, nil)

	attempts := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("temporary error")
		}
		return [][]float32{{1, 0, 0}}, nil
	}

	bp := NewBatchProcessor(chunks, embedder, 3, time.Millisecond, nil)
	_, err := bp.Process(context.Background(), pendingChunks(t, NewChunkIterator(chunks, 10)))
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestBatchProcessor_GivesUp(t *testing.T) {
	chunks := setupTestDB(t)
	seedChunks(t, chunks, "v1", []string{"only"}, nil)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding error")
	}

	bp := NewBatchProcessor(chunks, embedder, 3, time.Millisecond, nil)
	_, err := bp.Process(context.Background(), pendingChunks(t, NewChunkIterator(chunks, 10)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding error")
	assert.Equal(t, 3, embedder.CallCount())
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	chunks := setupTestDB(t)
	seedChunks(t, chunks, "v1", []string{"a", "b"}, nil)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}

	bp := NewBatchProcessor(chunks, embedder, 1, time.Millisecond, nil)
	_, err := bp.Process(context.Background(), pendingChunks(t, NewChunkIterator(chunks, 10)))
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
}

func TestBatchProcessor_ContextCancellation(t *testing.T) {
	chunks := setupTestDB(t)
	seedChunks(t, chunks, "v1", []string{"only"}, nil)
	pending := pendingChunks(t, NewChunkIterator(chunks, 10))

	ctx, cancel := context.WithCancel(context.Background())
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		cancel()
		return nil, errors.New("error")
	}

	bp := NewBatchProcessor(chunks, embedder, 3, time.Millisecond, nil)
	_, err := bp.Process(ctx, pending)
	assert.ErrorIs(t, err, context.Canceled)
}
