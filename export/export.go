// Package export writes a portable archive of everything ingested.
package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
)

// Archive member names.
const (
	VideosFile      = "videos.json"
	TranscriptsFile = "transcripts.json"
	NotesFile       = "notes.json"
	ChunksFile      = "chunks.json"
)

// Chunk is a transcript chunk as exported; embeddings are left out.
type Chunk struct {
	VideoID  string `json:"video_id"`
	StartMs  int64  `json:"start_ms"`
	EndMs    int64  `json:"end_ms"`
	Text     string `json:"text"`
	TextHash string `json:"text_hash"`
}

// Write streams a zip archive with one JSON array per table to w.
func Write(ctx context.Context, repos *storage.Repositories, w io.Writer) error {
	zw := zip.NewWriter(w)

	jobs, err := repos.Jobs.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list videos: %w", err)
	}
	if err := writeMember(zw, VideosFile, jobs); err != nil {
		return err
	}

	transcripts := []*core.Transcript{}
	if err := repos.Transcripts.ForEachTranscript(ctx, func(t *core.Transcript) error {
		transcripts = append(transcripts, t)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to list transcripts: %w", err)
	}
	if err := writeMember(zw, TranscriptsFile, transcripts); err != nil {
		return err
	}

	notes, err := repos.Notes.ListNotes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}
	if err := writeMember(zw, NotesFile, notes); err != nil {
		return err
	}

	chunks := []Chunk{}
	if err := repos.Chunks.ForEachChunk(ctx, func(c *core.TranscriptChunk) error {
		chunks = append(chunks, Chunk{
			VideoID:  c.VideoID,
			StartMs:  c.StartMs,
			EndMs:    c.EndMs,
			Text:     c.Text,
			TextHash: c.TextHash,
		})
		return nil
	}); err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}
	if err := writeMember(zw, ChunksFile, chunks); err != nil {
		return err
	}

	return zw.Close()
}

// Filename is the suggested archive name for an export taken at t.
func Filename(t time.Time) string {
	return "clipbrain-export-" + t.UTC().Format("20060102-150405") + ".zip"
}

func writeMember[T any](zw *zip.Writer, name string, rows []T) error {
	if rows == nil {
		rows = []T{}
	}
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
