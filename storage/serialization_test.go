package storage

import (
	"testing"
	"time"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRoundTrip(t *testing.T) {
	job := &core.VideoJob{
		ID:               "job-1",
		SourceURL:        "https://youtu.be/abc",
		CanonicalURLHash: "deadbeef",
		Platform:         core.PlatformYouTube,
		Status:           core.StatusFailed,
		FailReason:       core.FailNotFoundOrRemoved,
		DurationSeconds:  61.5,
		CreatedAt:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := MarshalJob(job)
	require.NoError(t, err)

	decoded, err := UnmarshalJob(data)
	require.NoError(t, err)
	assert.Equal(t, job, decoded)
}

func TestChunkEmbeddingNilSurvives(t *testing.T) {
	chunk := &core.TranscriptChunk{VideoID: "v", StartMs: 0, EndMs: 10, Text: "hi", TextHash: core.HashText("hi")}

	data, err := MarshalChunk(chunk)
	require.NoError(t, err)

	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Nil(t, decoded.Embedding)
	assert.Equal(t, chunk.TextHash, decoded.TextHash)
}

func TestUnmarshalInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil data", nil},
		{"empty data", []byte{}},
		{"truncated", []byte(`{"video_id":"v"`)},
		{"wrong type", []byte(`{"start_ms":"zero"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalChunk(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}
