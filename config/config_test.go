package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohit888790/clipbrain/core"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CLIPBRAIN_SIGNING_SECRET", "0123456789abcdef0123")
}

func TestFromEnvDefaults(t *testing.T) {
	validEnv(t)
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, StoreBadger, cfg.Store)
	assert.Equal(t, 900*time.Second, cfg.PlaybackTTL)
	assert.Equal(t, 3600*time.Second, cfg.TranscribeTTL)
	assert.Equal(t, 10, cfg.IngestRateLimit)
	assert.Equal(t, 100, cfg.SearchRateLimit)
	assert.Equal(t, time.Second, cfg.EmbedInterval)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.False(t, cfg.Previews)

	platforms, err := cfg.Platforms()
	require.NoError(t, err)
	assert.Equal(t, []core.Platform{
		core.PlatformYouTube, core.PlatformInstagram, core.PlatformTikTok, core.PlatformFacebook,
	}, platforms)

	aiCfg := cfg.AIConfig()
	assert.Equal(t, "http://localhost:11434/v1", aiCfg.EmbeddingHost)
	assert.Equal(t, "nomic-embed-text", aiCfg.EmbeddingModel)
}

func TestFromEnvOverrides(t *testing.T) {
	validEnv(t)
	t.Setenv("CLIPBRAIN_STORE", "postgres")
	t.Setenv("CLIPBRAIN_POSTGRES_URL", "postgres://u:p@localhost/clipbrain")
	t.Setenv("CLIPBRAIN_PLAYBACK_URL_TTL", "120")
	t.Setenv("CLIPBRAIN_EMBED_INTERVAL", "250ms")
	t.Setenv("CLIPBRAIN_WORKERS", "3")
	t.Setenv("CLIPBRAIN_PREVIEWS", "true")
	t.Setenv("CLIPBRAIN_ALLOWED_PLATFORMS", "tiktok")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, 2*time.Minute, cfg.PlaybackTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.EmbedInterval)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.Previews)
	platforms, err := cfg.Platforms()
	require.NoError(t, err)
	assert.Equal(t, []core.Platform{core.PlatformTikTok}, platforms)
}

func TestFromEnvMalformed(t *testing.T) {
	t.Setenv("CLIPBRAIN_WORKERS", "many")
	t.Setenv("CLIPBRAIN_STALE_AFTER", "soon")
	_, err := FromEnv()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "CLIPBRAIN_WORKERS")
	assert.Contains(t, err.Error(), "CLIPBRAIN_STALE_AFTER")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"CLIPBRAIN_SIGNING_SECRET": ""}},
		{"short secret", map[string]string{"CLIPBRAIN_SIGNING_SECRET": "short"}},
		{"unknown store", map[string]string{"CLIPBRAIN_STORE": "sqlite"}},
		{"postgres without url", map[string]string{"CLIPBRAIN_STORE": "postgres"}},
		{"bad public url", map[string]string{"CLIPBRAIN_PUBLIC_URL": "not a url"}},
		{"zero workers", map[string]string{"CLIPBRAIN_WORKERS": "0"}},
		{"unknown platform", map[string]string{"CLIPBRAIN_ALLOWED_PLATFORMS": "youtube,vimeo"}},
		{"empty platform list", map[string]string{"CLIPBRAIN_ALLOWED_PLATFORMS": ","}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := FromEnv()
			require.NoError(t, err)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
