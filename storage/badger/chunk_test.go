package badger

import (
	"context"
	"testing"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkListByVideoOrdered(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	// Insert out of order; 256 and 1 would misorder under a decimal key
	for _, start := range []int64{256000, 1000, 12000, 0} {
		require.NoError(t, repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{
			VideoID: "v1", StartMs: start, EndMs: start + 500, Text: "t",
		}))
	}
	require.NoError(t, repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{
		VideoID: "v10", StartMs: 0, EndMs: 500, Text: "other video",
	}))

	chunks, err := repos.Chunks.ListChunksByVideo(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	var starts []int64
	for _, c := range chunks {
		starts = append(starts, c.StartMs)
	}
	assert.Equal(t, []int64{0, 1000, 12000, 256000}, starts)
}

func TestChunkSaveFillsHashAndRejectsInvalid(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	chunk := &core.TranscriptChunk{VideoID: "v", StartMs: 0, EndMs: 10, Text: "Hello World"}
	require.NoError(t, repos.Chunks.SaveChunk(ctx, chunk))
	assert.Equal(t, core.HashText("hello world"), chunk.TextHash)

	err = repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{VideoID: "v", StartMs: 10, EndMs: 10, Text: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidSpan)
}

func TestFindEmbeddingByTextHash(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	hash := core.HashText("shared words")

	// Unembedded chunk with the same text is not a cache hit
	require.NoError(t, repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{
		VideoID: "a", StartMs: 0, EndMs: 10, Text: "shared words",
	}))
	got, err := repos.Chunks.FindEmbeddingByTextHash(ctx, hash)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{
		VideoID: "b", StartMs: 0, EndMs: 10, Text: "Shared  Words", Embedding: []float32{0.5, 0.25},
	}))
	got, err = repos.Chunks.FindEmbeddingByTextHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, got)

	got, err = repos.Chunks.FindEmbeddingByTextHash(ctx, core.HashText("unknown"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChunkReplaceMovesHashIndex(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{
		VideoID: "v", StartMs: 0, EndMs: 10, Text: "before", Embedding: []float32{1},
	}))
	require.NoError(t, repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{
		VideoID: "v", StartMs: 0, EndMs: 10, Text: "after", Embedding: []float32{2},
	}))

	got, err := repos.Chunks.FindEmbeddingByTextHash(ctx, core.HashText("before"))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repos.Chunks.FindEmbeddingByTextHash(ctx, core.HashText("after"))
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, got)
}

func TestChunkEmbeddingBackfill(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{VideoID: "v", StartMs: 0, EndMs: 10, Text: "one"}))
	require.NoError(t, repos.Chunks.SaveChunk(ctx, &core.TranscriptChunk{VideoID: "v", StartMs: 10, EndMs: 20, Text: "two", Embedding: []float32{1}}))

	missing, err := repos.Chunks.ListChunksWithoutEmbedding(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "one", missing[0].Text)

	require.NoError(t, repos.Chunks.UpdateChunkEmbedding(ctx, "v", 0, []float32{3}))
	missing, err = repos.Chunks.ListChunksWithoutEmbedding(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	got, err := repos.Chunks.FindEmbeddingByTextHash(ctx, core.HashText("one"))
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, got)

	err = repos.Chunks.UpdateChunkEmbedding(ctx, "v", 999, []float32{1})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTranscriptsAndNotes(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, repos.Transcripts.SaveTranscript(ctx, &core.Transcript{VideoID: "v1", FullText: "alpha beta"}))
	require.NoError(t, repos.Transcripts.SaveTranscript(ctx, &core.Transcript{VideoID: "v2", FullText: "gamma"}))

	tr, err := repos.Transcripts.GetTranscript(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "alpha beta", tr.FullText)
	assert.False(t, tr.CreatedAt.IsZero())

	_, err = repos.Transcripts.GetTranscript(ctx, "v3")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var seen []string
	require.NoError(t, repos.Transcripts.ForEachTranscript(ctx, func(tr *core.Transcript) error {
		seen = append(seen, tr.VideoID)
		return nil
	}))
	assert.ElementsMatch(t, []string{"v1", "v2"}, seen)

	require.NoError(t, repos.Notes.SaveNotes(ctx, &core.Notes{VideoID: "v1", Summary: "s", Keywords: []string{"go"}}))
	require.NoError(t, repos.Notes.UpdateKeywords(ctx, "v1", []string{"rust", "zig"}))

	notes, err := repos.Notes.GetNotes(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "s", notes.Summary)
	assert.Equal(t, []string{"rust", "zig"}, notes.Keywords)

	err = repos.Notes.UpdateKeywords(ctx, "v2", []string{"x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := repos.Notes.ListNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
