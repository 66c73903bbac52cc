// Package source detects the platform of a video URL and reduces it to a
// canonical form used for de-duplication.
package source

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Mohit888790/clipbrain/core"
)

var (
	// ErrInvalidURL indicates a URL without a scheme or host.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrUnsupportedPlatform indicates a host that matches no known platform.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrPlatformNotAllowed indicates a known platform that is disabled.
	ErrPlatformNotAllowed = errors.New("platform not allowed")
)

// AllPlatforms lists every platform in detection order.
var AllPlatforms = []core.Platform{
	core.PlatformYouTube,
	core.PlatformInstagram,
	core.PlatformTikTok,
	core.PlatformFacebook,
}

var platformHosts = map[core.Platform][]string{
	core.PlatformYouTube:   {"youtube.com", "youtu.be"},
	core.PlatformInstagram: {"instagram.com", "instagr.am"},
	core.PlatformTikTok:    {"tiktok.com"},
	core.PlatformFacebook:  {"facebook.com", "fb.watch", "fb.com"},
}

var (
	youtubeID    = `([A-Za-z0-9_-]{11})`
	youtubePaths = []*regexp.Regexp{
		regexp.MustCompile(`youtu\.be/` + youtubeID),
		regexp.MustCompile(`/shorts/` + youtubeID),
		regexp.MustCompile(`/embed/` + youtubeID),
		regexp.MustCompile(`/live/` + youtubeID),
	}
	youtubeQueryID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	instagramPost  = regexp.MustCompile(`/(p|reel|reels|tv)/([A-Za-z0-9_-]+)`)
	tiktokVideo    = regexp.MustCompile(`/(@[^/]+)/video/(\d+)`)
	tiktokBareID   = regexp.MustCompile(`/video/(\d+)`)
	facebookVideo  = regexp.MustCompile(`/videos?/(\d+)`)
	facebookReel   = regexp.MustCompile(`/reel/(\d+)`)
	facebookNumber = regexp.MustCompile(`^\d+$`)
)

// Parse checks that raw has a scheme and a host.
func Parse(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	return u, nil
}

// DetectPlatform returns the platform whose domain the URL's host belongs to.
func DetectPlatform(u *url.URL) (core.Platform, error) {
	host := strings.ToLower(u.Hostname())
	for _, platform := range AllPlatforms {
		for _, domain := range platformHosts[platform] {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return platform, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, host)
}

// Canonicalize rewrites a URL into the platform's canonical form. URLs
// whose video id cannot be found, such as short links, are returned trimmed
// but otherwise unchanged.
func Canonicalize(u *url.URL, platform core.Platform) string {
	raw := u.String()
	switch platform {
	case core.PlatformYouTube:
		if id := youtubeVideoID(u); id != "" {
			return "https://www.youtube.com/watch?v=" + id
		}
	case core.PlatformInstagram:
		if m := instagramPost.FindStringSubmatch(u.Path); m != nil {
			kind := m[1]
			if kind == "reels" {
				kind = "reel"
			}
			return fmt.Sprintf("https://www.instagram.com/%s/%s/", kind, m[2])
		}
	case core.PlatformTikTok:
		if m := tiktokVideo.FindStringSubmatch(u.Path); m != nil {
			return fmt.Sprintf("https://www.tiktok.com/%s/video/%s", m[1], m[2])
		}
		if m := tiktokBareID.FindStringSubmatch(u.Path); m != nil {
			return "https://www.tiktok.com/@user/video/" + m[1]
		}
	case core.PlatformFacebook:
		if id := u.Query().Get("v"); facebookNumber.MatchString(id) {
			return "https://www.facebook.com/watch/?v=" + id
		}
		if m := facebookVideo.FindStringSubmatch(u.Path); m != nil {
			return "https://www.facebook.com/watch/?v=" + m[1]
		}
		if m := facebookReel.FindStringSubmatch(u.Path); m != nil {
			return "https://www.facebook.com/watch/?v=" + m[1]
		}
	}
	return raw
}

func youtubeVideoID(u *url.URL) string {
	if v := u.Query().Get("v"); youtubeQueryID.MatchString(v) {
		return v
	}
	target := u.Host + u.Path
	for _, re := range youtubePaths {
		if m := re.FindStringSubmatch(target); m != nil {
			return m[1]
		}
	}
	return ""
}

// HashURL is the de-duplication key of a canonical URL.
func HashURL(canonical string) string {
	return core.HashBytes([]byte(canonical))
}

// Resolved is a validated, canonicalized source URL.
type Resolved struct {
	URL       string
	Platform  core.Platform
	Canonical string
	Hash      string
}

// Resolver validates URLs against a set of enabled platforms.
type Resolver struct {
	allowed map[core.Platform]bool
}

// NewResolver enables the given platforms; none means all.
func NewResolver(allowed ...core.Platform) *Resolver {
	if len(allowed) == 0 {
		allowed = AllPlatforms
	}
	r := &Resolver{allowed: make(map[core.Platform]bool, len(allowed))}
	for _, p := range allowed {
		r.allowed[p] = true
	}
	return r
}

// Resolve parses, detects, checks and canonicalizes raw.
func (r *Resolver) Resolve(raw string) (*Resolved, error) {
	u, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	platform, err := DetectPlatform(u)
	if err != nil {
		return nil, err
	}
	if !r.allowed[platform] {
		return nil, fmt.Errorf("%w: %s", ErrPlatformNotAllowed, platform)
	}
	canonical := Canonicalize(u, platform)
	return &Resolved{
		URL:       strings.TrimSpace(raw),
		Platform:  platform,
		Canonical: canonical,
		Hash:      HashURL(canonical),
	}, nil
}

// ParsePlatforms converts a comma-separated list such as
// "youtube,tiktok" into platforms, rejecting unknown names.
func ParsePlatforms(list string) ([]core.Platform, error) {
	var out []core.Platform
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		p := core.Platform(name)
		if _, ok := platformHosts[p]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, name)
		}
		out = append(out, p)
	}
	return out, nil
}
