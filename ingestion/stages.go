package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mohit888790/clipbrain/ai"
	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/retry"
	"github.com/Mohit888790/clipbrain/transcribe"
)

var contentTypes = map[string]string{
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".webm": "audio/webm",
	".mp4":  "video/mp4",
}

func contentTypeFor(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// download fetches the media and fills whatever metadata is available.
// It is never retried here.
func (p *Pipeline) download(ctx context.Context, r *run) error {
	res, err := p.downloader.Download(ctx, r.job.SourceURL, r.job.ID)
	if err != nil {
		return err
	}
	if res == nil || !res.Success {
		reason, message := core.FailDownload, "downloader returned no result"
		if res != nil {
			message = res.Message
			if res.Code != core.FailNone {
				reason = res.Code
			}
		}
		return &StageError{
			Stage:  core.StageDownload,
			Reason: reason,
			Err:    fmt.Errorf("%w: %s", ErrDownloadFailed, message),
		}
	}

	r.mediaPath = res.Path
	job := r.job
	if res.Title != "" {
		job.Title = res.Title
	}
	if res.DurationSeconds > 0 {
		job.DurationSeconds = res.DurationSeconds
	}
	if res.Language != "" {
		job.Language = res.Language
	}

	if p.inspector != nil && (job.DurationSeconds <= 0 || job.Language == "") {
		info := p.inspector.Inspect(ctx, res.Path)
		if job.DurationSeconds <= 0 && info.DurationSeconds > 0 {
			job.DurationSeconds = info.DurationSeconds
		}
		if job.Language == "" && info.Language != "" {
			job.Language = info.Language
		}
	}

	r.logger.Info("media downloaded", "title", job.Title, "duration", job.DurationSeconds)
	return nil
}

// upload stores the media, retrying once. The local file is released only
// after a successful upload.
func (p *Pipeline) upload(ctx context.Context, r *run) error {
	contentType := contentTypeFor(r.mediaPath)
	path, err := retry.Do(ctx, stageAttempts, p.uploadRetryDelay,
		func(ctx context.Context) (string, error) {
			return p.store.Upload(ctx, r.job.ID, r.mediaPath, contentType)
		},
		retry.WithLogger(r.logger))
	if err != nil {
		return &StageError{Stage: core.StageUpload, Reason: core.FailStorage, Err: err}
	}

	r.job.StoragePath = path
	if err := p.downloader.Cleanup(r.mediaPath); err != nil {
		r.logger.Warn("failed to clean up local media", "path", r.mediaPath, "err", err)
	}
	r.mediaPath = ""
	return nil
}

// transcribe signs the stored media URL and calls the provider, retrying once.
func (p *Pipeline) transcribe(ctx context.Context, r *run) error {
	res, err := retry.Do(ctx, stageAttempts, p.transcribeRetryDelay,
		func(ctx context.Context) (*transcribe.Result, error) {
			url, err := p.store.SignedURL(r.job.StoragePath, p.signedURLTTL)
			if err != nil {
				return nil, fmt.Errorf("sign media url: %w", err)
			}
			res, err := p.transcriber.Transcribe(ctx, url)
			if err != nil {
				return nil, err
			}
			if res == nil || !res.Success {
				message := "no result"
				if res != nil {
					message = res.Message
				}
				return nil, fmt.Errorf("%w: %s", ErrTranscriptionFailed, message)
			}
			return res, nil
		},
		retry.WithLogger(r.logger))
	if err != nil {
		return &StageError{Stage: core.StageTranscribe, Reason: core.FailTranscription, Err: err}
	}

	if r.job.Language == "" && res.Language != "" {
		r.job.Language = res.Language
	}
	transcript := &core.Transcript{
		VideoID:   r.job.ID,
		FullText:  res.FullText,
		Language:  res.Language,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.repos.Transcripts.SaveTranscript(ctx, transcript); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}

	r.words = res.Words
	r.transcript = res.FullText
	r.logger.Info("transcribed", "words", len(res.Words), "language", res.Language)
	return nil
}

// generateNotes never fails the job. An unparsable response is persisted as
// an empty notes record carrying the raw provider text.
// A blank transcript skips the provider and stores empty notes.
func (p *Pipeline) generateNotes(ctx context.Context, r *run) error {
	var res *ai.NotesResult
	if strings.TrimSpace(r.transcript) != "" {
		var err error
		res, err = p.notes.GenerateNotes(ctx, r.transcript, r.job.DurationSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			r.logger.Warn("notes generation failed", "err", err)
			res = nil
		}
	}

	notes := &core.Notes{}
	if res != nil {
		*notes = res.Notes
		if !res.Parsed {
			notes.RawText = res.RawText
			r.logger.Warn("notes response could not be parsed", "err", res.Err)
		}
	}
	notes.VideoID = r.job.ID
	notes.CreatedAt = time.Now().UTC()

	if err := p.repos.Notes.SaveNotes(ctx, notes); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Error("failed to save notes", "err", err)
		return nil
	}

	r.chapters = notes.Chapters
	return nil
}
