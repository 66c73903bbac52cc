package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// DefaultPreviewSeconds is the length of a preview clip.
const DefaultPreviewSeconds = 12.0

// PreviewGenerator cuts short clips with ffmpeg.
type PreviewGenerator struct {
	binary string
	runner commandRunner
	logger *slog.Logger
}

// NewPreviewGenerator creates a PreviewGenerator using the ffmpeg on PATH, or
// binary if non-empty.
func NewPreviewGenerator(binary string) *PreviewGenerator {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &PreviewGenerator{
		binary: binary,
		runner: &execRunner{},
		logger: slog.Default().With("component", "preview"),
	}
}

// Generate writes a clip of durationSeconds starting at startSeconds.
func (g *PreviewGenerator) Generate(ctx context.Context, input, output string, startSeconds, durationSeconds float64) error {
	res, err := g.runner.Run(ctx, g.binary,
		"-ss", formatSeconds(startSeconds),
		"-t", formatSeconds(durationSeconds),
		"-i", input,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-y",
		output,
	)
	if err != nil {
		return fmt.Errorf("%w: ffmpeg exit %d: %s", ErrToolFailed, res.ExitCode, truncateMessage(res.Stderr))
	}
	if _, err := os.Stat(output); err != nil {
		return fmt.Errorf("%w: %s", ErrOutputMissing, output)
	}
	g.logger.Debug("preview generated", "output", output, "start", startSeconds)
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
