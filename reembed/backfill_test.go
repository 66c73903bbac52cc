package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohit888790/clipbrain/ai/mock"
)

func testConfig() *Config {
	return &Config{
		BatchSize:      3,
		ReportInterval: 3,
		MaxAttempts:    2,
		RetryDelay:     time.Millisecond,
	}
}

func TestNewBackfiller_Requires(t *testing.T) {
	_, err := NewBackfiller(nil, mock.NewMockEmbedder(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrChunksRequired)

	_, err = NewBackfiller(setupTestDB(t), nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestBackfiller_Run(t *testing.T) {
	chunks := setupTestDB(t)
	seedChunks(t, chunks, "v1", numbered(10), func(i int) bool { return i%5 == 0 })
	seedChunks(t, chunks, "v2", []string{"text 1", "fresh"}, nil)

	var buf bytes.Buffer
	embedder := mock.NewMockEmbedder()
	b, err := NewBackfiller(chunks, embedder, testConfig(), &buf, nil)
	require.NoError(t, err)

	ctx := context.Background()
	result, err := b.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Pending)
	assert.Equal(t, 10, result.Reused+result.Embedded)

	remaining, err := chunks.ListChunksWithoutEmbedding(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	output := buf.String()
	assert.Contains(t, output, "Backfilling embeddings for 10 chunks (batch size: 3)")
	assert.Contains(t, output, "10/10 chunks")

	// nothing left on a second run
	buf.Reset()
	result, err = b.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Pending)
	assert.Contains(t, buf.String(), "No chunks need embeddings")
}

func TestBackfiller_StopsAndResumes(t *testing.T) {
	chunks := setupTestDB(t)
	seedChunks(t, chunks, "v1", numbered(6), nil)

	calls := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("provider down")
		}
		return mock.NewMockEmbedder().EmbedTexts(context.Background(), texts)
	}

	b, err := NewBackfiller(chunks, embedder, testConfig(), nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	result, err := b.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
	assert.Equal(t, 3, result.Embedded)

	remaining, err := chunks.ListChunksWithoutEmbedding(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)

	embedder.EmbedTextsFunc = nil
	result, err = b.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Pending)
	assert.Equal(t, 3, result.Embedded)
}
