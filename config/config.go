// Package config loads CLIPBRAIN_* settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Mohit888790/clipbrain/ai"
	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/source"
)

// Store backends.
const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the process configuration shared by every command.
type Config struct {
	// Record store
	Store       string `validate:"oneof=badger postgres"`
	DataDir     string `validate:"required_if=Store badger"`
	PostgresURL string `validate:"required_if=Store postgres"`

	// Object storage and HTTP
	BlobDir       string        `validate:"required"`
	PublicURL     string        `validate:"required,url"`
	SigningSecret string        `validate:"required,min=16"`
	HTTPAddr      string        `validate:"required"`
	PlaybackTTL   time.Duration `validate:"min=1s"`
	TranscribeTTL time.Duration `validate:"min=1s"`

	// Queue
	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"min=0"`
	QueueSize     int `validate:"min=1"`

	// Intake and rate limits
	AllowedPlatforms string `validate:"required"`
	IngestRateLimit  int    `validate:"min=0"`
	SearchRateLimit  int    `validate:"min=0"`

	// Worker
	Workers       int           `validate:"min=1"`
	WorkDir       string        `validate:"required"`
	EmbedInterval time.Duration `validate:"min=0s"`
	StaleAfter    time.Duration `validate:"min=1m"`
	SweepSchedule string        `validate:"required"`
	Previews      bool

	// External tools
	YtDlpPath   string `validate:"required"`
	FFprobePath string `validate:"required"`
	FFmpegPath  string `validate:"required"`

	// Providers
	DeepgramAPIKey string
	DeepgramModel  string `validate:"required"`
	AIHost         string `validate:"required"`
	AIAPIKey       string
	EmbeddingModel string `validate:"required"`
	NotesModel     string `validate:"required"`
}

// Load reads .env when present, then the environment, and validates.
func Load() (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load(".env")
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the environment without validating it.
func FromEnv() (*Config, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		n, err := getenvInt(key, fallback)
		errs = append(errs, err)
		return n
	}
	durVar := func(key string, fallback time.Duration) time.Duration {
		d, err := getenvDuration(key, fallback)
		errs = append(errs, err)
		return d
	}
	boolVar := func(key string, fallback bool) bool {
		b, err := getenvBool(key, fallback)
		errs = append(errs, err)
		return b
	}

	cfg := &Config{
		Store:       getenv("CLIPBRAIN_STORE", StoreBadger),
		DataDir:     getenv("CLIPBRAIN_DATA_DIR", filepath.Join("data", "db")),
		PostgresURL: getenv("CLIPBRAIN_POSTGRES_URL", ""),

		BlobDir:       getenv("CLIPBRAIN_BLOB_DIR", filepath.Join("data", "blobs")),
		PublicURL:     getenv("CLIPBRAIN_PUBLIC_URL", "http://localhost:8080"),
		SigningSecret: getenv("CLIPBRAIN_SIGNING_SECRET", ""),
		HTTPAddr:      getenv("CLIPBRAIN_HTTP_ADDR", ":8080"),
		PlaybackTTL:   durVar("CLIPBRAIN_PLAYBACK_URL_TTL", 900*time.Second),
		TranscribeTTL: durVar("CLIPBRAIN_TRANSCRIBE_URL_TTL", 3600*time.Second),

		RedisAddr:     getenv("CLIPBRAIN_REDIS_ADDR", ""),
		RedisPassword: getenv("CLIPBRAIN_REDIS_PASSWORD", ""),
		RedisDB:       intVar("CLIPBRAIN_REDIS_DB", 0),
		QueueSize:     intVar("CLIPBRAIN_QUEUE_SIZE", 256),

		AllowedPlatforms: getenv("CLIPBRAIN_ALLOWED_PLATFORMS", "youtube,instagram,tiktok,facebook"),
		IngestRateLimit:  intVar("CLIPBRAIN_INGEST_RATE_LIMIT", 10),
		SearchRateLimit:  intVar("CLIPBRAIN_SEARCH_RATE_LIMIT", 100),

		Workers:       intVar("CLIPBRAIN_WORKERS", max(runtime.NumCPU()/2, 1)),
		WorkDir:       getenv("CLIPBRAIN_WORK_DIR", filepath.Join(os.TempDir(), "clipbrain")),
		EmbedInterval: durVar("CLIPBRAIN_EMBED_INTERVAL", time.Second),
		StaleAfter:    durVar("CLIPBRAIN_STALE_AFTER", 2*time.Hour),
		SweepSchedule: getenv("CLIPBRAIN_SWEEP_SCHEDULE", "@every 10m"),
		Previews:      boolVar("CLIPBRAIN_PREVIEWS", false),

		YtDlpPath:   getenv("CLIPBRAIN_YTDLP_PATH", "yt-dlp"),
		FFprobePath: getenv("CLIPBRAIN_FFPROBE_PATH", "ffprobe"),
		FFmpegPath:  getenv("CLIPBRAIN_FFMPEG_PATH", "ffmpeg"),

		DeepgramAPIKey: getenv("CLIPBRAIN_DEEPGRAM_API_KEY", ""),
		DeepgramModel:  getenv("CLIPBRAIN_DEEPGRAM_MODEL", "nova-2"),
		AIHost:         getenv("CLIPBRAIN_AI_HOST", "http://localhost:11434/v1"),
		AIAPIKey:       getenv("CLIPBRAIN_AI_API_KEY", ""),
		EmbeddingModel: getenv("CLIPBRAIN_EMBEDDING_MODEL", "nomic-embed-text"),
		NotesModel:     getenv("CLIPBRAIN_NOTES_MODEL", "qwen2.5:7b"),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks struct constraints and the platform list.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Platforms(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Platforms parses AllowedPlatforms.
func (c *Config) Platforms() ([]core.Platform, error) {
	platforms, err := source.ParsePlatforms(c.AllowedPlatforms)
	if err != nil {
		return nil, err
	}
	if len(platforms) == 0 {
		return nil, errors.New("no platforms allowed")
	}
	return platforms, nil
}

// AIConfig returns the provider settings for ai/openai.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.AIHost),
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithNotesModel(c.NotesModel),
		ai.WithAPIKey(c.AIAPIKey),
	)
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

// getenvDuration accepts Go durations ("15m") or whole seconds ("900").
func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a duration", key, v)
	}
	return d, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return b, nil
}
