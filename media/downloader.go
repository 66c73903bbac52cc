package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Mohit888790/clipbrain/core"
)

const maxMessageChars = 500

// downloadExtensions are tried, in order, to find the downloaded file.
var downloadExtensions = []string{".m4a", ".mp3", ".webm", ".mp4"}

// DownloadResult is the tagged outcome of a download. When Success is false
// Code and Message describe the failure and Path is empty.
type DownloadResult struct {
	Success         bool
	Path            string
	Title           string
	DurationSeconds float64
	Language        string
	Code            core.FailReason
	Message         string
}

// ytdlpInfo is the subset of yt-dlp's --print-json output we read.
type ytdlpInfo struct {
	Title    *string  `json:"title"`
	Duration *float64 `json:"duration"`
	Language *string  `json:"language"`
}

// Downloader fetches media with yt-dlp.
type Downloader struct {
	binary string
	dir    string
	runner commandRunner
	logger *slog.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithDownloadDir sets the directory downloads are written to.
// Default is "./downloads".
func WithDownloadDir(dir string) DownloaderOption {
	return func(d *Downloader) {
		d.dir = dir
	}
}

// WithYtDlpBinary overrides the yt-dlp executable.
func WithYtDlpBinary(path string) DownloaderOption {
	return func(d *Downloader) {
		d.binary = path
	}
}

// WithDownloaderLogger sets the logger.
func WithDownloaderLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// NewDownloader creates a Downloader and ensures its directory exists.
func NewDownloader(opts ...DownloaderOption) (*Downloader, error) {
	d := &Downloader{
		binary: "yt-dlp",
		dir:    "./downloads",
		runner: &execRunner{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "downloader")
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	return d, nil
}

// Download fetches url into <dir>/<jobID>.<ext>. Tool failures come back as
// an unsuccessful result with a classified Code; the error return is
// reserved for context cancellation.
func (d *Downloader) Download(ctx context.Context, url, jobID string) (*DownloadResult, error) {
	args := []string{
		"-f", "bestaudio[ext=m4a]/bestaudio/best",
		"--no-playlist",
		"--no-warnings",
		"--retries", "2",
		"--socket-timeout", "30",
		"-o", filepath.Join(d.dir, jobID+".%(ext)s"),
		"--print-json",
		"--no-simulate",
		url,
	}

	d.logger.Debug("starting download", "job", jobID)
	res, err := d.runner.Run(ctx, d.binary, args...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		diagnostic := res.Stderr
		if diagnostic == "" {
			diagnostic = err.Error()
		}
		code := ClassifyFailure(diagnostic)
		d.logger.Warn("download failed", "job", jobID, "code", code, "exit", res.ExitCode)
		return &DownloadResult{Code: code, Message: truncateMessage(diagnostic)}, nil
	}

	path := d.findOutput(jobID)
	if path == "" {
		return &DownloadResult{Code: core.FailDownload, Message: ErrOutputMissing.Error()}, nil
	}

	result := &DownloadResult{Success: true, Path: path}
	var info ytdlpInfo
	if err := json.Unmarshal([]byte(firstLine(res.Stdout)), &info); err != nil {
		d.logger.Debug("could not parse yt-dlp metadata", "job", jobID, "err", err)
		return result, nil
	}
	if info.Title != nil {
		result.Title = *info.Title
	}
	if info.Duration != nil {
		result.DurationSeconds = *info.Duration
	}
	if info.Language != nil {
		result.Language = *info.Language
	}
	return result, nil
}

// Cleanup removes a downloaded file. Missing files are not an error.
func (d *Downloader) Cleanup(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *Downloader) findOutput(jobID string) string {
	for _, ext := range downloadExtensions {
		candidate := filepath.Join(d.dir, jobID+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// firstLine returns the first non-empty line; yt-dlp prints one JSON object
// per downloaded entry.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func truncateMessage(s string) string {
	if utf8.RuneCountInString(s) <= maxMessageChars {
		return s
	}
	return string([]rune(s)[:maxMessageChars])
}
