package search

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/Mohit888790/clipbrain/core"
)

// DeepLink returns a link to the moment startMs of a video. Only YouTube
// supports timestamp addressing; other platforms get the source URL.
func DeepLink(platform core.Platform, sourceURL string, startMs int64) string {
	if platform != core.PlatformYouTube {
		return sourceURL
	}
	u, err := url.Parse(sourceURL)
	if err != nil {
		return sourceURL
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(startMs/1000, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// ChapterAt returns the title of the latest chapter starting at or before
// startMs, or "" when none does.
func ChapterAt(chapters []core.Chapter, startMs int64) string {
	sorted := slices.Clone(chapters)
	slices.SortStableFunc(sorted, func(a, b core.Chapter) int {
		return cmp.Compare(a.StartMs, b.StartMs)
	})
	title := ""
	for _, c := range sorted {
		if c.StartMs > startMs {
			break
		}
		title = c.Title
	}
	return title
}

// mediaFragment addresses a time range in a media URL.
func mediaFragment(startMs, endMs int64) string {
	return fmt.Sprintf("#t=%s,%s", seconds(startMs), seconds(endMs))
}

func seconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64)
}
