package ingestion

import (
	"context"
	"time"

	"github.com/Mohit888790/clipbrain/media"
	"github.com/Mohit888790/clipbrain/transcribe"
)

// Downloader fetches source media to a local file.
// Implemented by media.Downloader.
type Downloader interface {
	// Download reports tool failures through the result. The error return
	// is for cancellation only.
	Download(ctx context.Context, url, jobID string) (*media.DownloadResult, error)

	// Cleanup releases a downloaded file.
	Cleanup(path string) error
}

// Inspector reads metadata from a local media file. Implemented by media.Inspector.
type Inspector interface {
	Inspect(ctx context.Context, path string) media.MediaInfo
}

// ObjectStore persists media and issues signed URLs. Implemented by blob.Store.
type ObjectStore interface {
	Upload(ctx context.Context, jobID, localPath, contentType string) (string, error)
	UploadPreview(ctx context.Context, jobID, localPath string, startMs, endMs int64) (string, error)
	SignedURL(path string, ttl time.Duration) (string, error)
}

// Transcriber converts a media URL into timed words.
// Implemented by transcribe.Client.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaURL string) (*transcribe.Result, error)
}

// PreviewGenerator cuts a short clip. Implemented by media.PreviewGenerator.
type PreviewGenerator interface {
	Generate(ctx context.Context, input, output string, startSeconds, durationSeconds float64) error
}
