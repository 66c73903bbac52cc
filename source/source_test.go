package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohit888790/clipbrain/core"
)

func TestResolve(t *testing.T) {
	r := NewResolver()
	tests := []struct {
		raw       string
		platform  core.Platform
		canonical string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL1&t=42", core.PlatformYouTube, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", core.PlatformYouTube, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"https://m.youtube.com/shorts/dQw4w9WgXcQ", core.PlatformYouTube, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", core.PlatformYouTube, "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"  https://www.instagram.com/reel/Cx1_ab-2/?igsh=xyz  ", core.PlatformInstagram, "https://www.instagram.com/reel/Cx1_ab-2/"},
		{"https://instagr.am/p/ABC123", core.PlatformInstagram, "https://www.instagram.com/p/ABC123/"},
		{"https://www.tiktok.com/@maker/video/7234567890123456789?lang=en", core.PlatformTikTok, "https://www.tiktok.com/@maker/video/7234567890123456789"},
		{"https://vm.tiktok.com/ZMabc123/", core.PlatformTikTok, "https://vm.tiktok.com/ZMabc123/"},
		{"https://www.facebook.com/someone/videos/1234567890/", core.PlatformFacebook, "https://www.facebook.com/watch/?v=1234567890"},
		{"https://www.facebook.com/watch/?v=1234567890&ref=share", core.PlatformFacebook, "https://www.facebook.com/watch/?v=1234567890"},
		{"https://fb.watch/abcDEF/", core.PlatformFacebook, "https://fb.watch/abcDEF/"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			res, err := r.Resolve(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.platform, res.Platform)
			assert.Equal(t, tt.canonical, res.Canonical)
			assert.Equal(t, HashURL(tt.canonical), res.Hash)
		})
	}
}

func TestResolveSameVideoSameHash(t *testing.T) {
	r := NewResolver()
	a, err := r.Resolve("https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	b, err := r.Resolve("https://www.youtube.com/watch?v=dQw4w9WgXcQ&feature=share")
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		raw     string
		allowed []core.Platform
		want    error
	}{
		{"not a url", nil, ErrInvalidURL},
		{"/watch?v=dQw4w9WgXcQ", nil, ErrInvalidURL},
		{"ftp://youtube.com/x", nil, ErrInvalidURL},
		{"https://vimeo.com/12345", nil, ErrUnsupportedPlatform},
		{"https://notyoutube.com/watch?v=dQw4w9WgXcQ", nil, ErrUnsupportedPlatform},
		{"https://www.tiktok.com/@a/video/1", []core.Platform{core.PlatformYouTube}, ErrPlatformNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := NewResolver(tt.allowed...).Resolve(tt.raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParsePlatforms(t *testing.T) {
	got, err := ParsePlatforms(" YouTube, tiktok ,,")
	require.NoError(t, err)
	assert.Equal(t, []core.Platform{core.PlatformYouTube, core.PlatformTikTok}, got)

	_, err = ParsePlatforms("youtube,vimeo")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}
