package media

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
)

// MediaInfo holds what ffprobe could tell about a file. Zero values mean
// unknown.
type MediaInfo struct {
	DurationSeconds float64
	AudioCodec      string
	Container       string
	Language        string
	Bitrate         int64
}

type ffprobeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType string            `json:"codec_type"`
		CodecName string            `json:"codec_name"`
		Tags      map[string]string `json:"tags"`
	} `json:"streams"`
}

// Inspector reads media metadata with ffprobe.
type Inspector struct {
	binary string
	runner commandRunner
	logger *slog.Logger
}

// NewInspector creates an Inspector using the ffprobe on PATH, or binary if
// non-empty.
func NewInspector(binary string) *Inspector {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Inspector{
		binary: binary,
		runner: &execRunner{},
		logger: slog.Default().With("component", "inspector"),
	}
}

// Inspect never fails; any problem yields an empty MediaInfo.
func (i *Inspector) Inspect(ctx context.Context, path string) MediaInfo {
	res, err := i.runner.Run(ctx, i.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		i.logger.Debug("ffprobe failed", "path", path, "err", err)
		return MediaInfo{}
	}

	var out ffprobeOutput
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		i.logger.Debug("ffprobe output unreadable", "path", path, "err", err)
		return MediaInfo{}
	}

	info := MediaInfo{Container: out.Format.FormatName}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.DurationSeconds = d
	}
	if b, err := strconv.ParseInt(out.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = b
	}
	for _, s := range out.Streams {
		if s.CodecType == "audio" {
			info.AudioCodec = s.CodecName
			info.Language = s.Tags["language"]
			break
		}
	}
	return info
}
