package media

import (
	"strings"

	"github.com/Mohit888790/clipbrain/core"
)

// failureRules are checked in order; the first category with a matching
// keyword wins.
var failureRules = []struct {
	reason   core.FailReason
	keywords []string
}{
	{core.FailRestrictedContent, []string{
		"private video",
		"members-only",
		"this video is private",
		"login required",
		"sign in to confirm",
		"age-restricted",
	}},
	{core.FailNotFoundOrRemoved, []string{
		"video unavailable",
		"video not found",
		"has been removed",
		"deleted",
		"404",
		"this video isn't available",
	}},
	{core.FailPlatformBlocked, []string{
		"429",
		"too many requests",
		"rate limit",
		"temporarily blocked",
		"try again later",
	}},
	{core.FailUnsupportedPlatform, []string{
		"unsupported url",
		"no suitable extractor",
	}},
}

// ClassifyFailure maps downloader diagnostic text to a fail reason.
// Text matching no rule is a generic download failure.
func ClassifyFailure(diagnostic string) core.FailReason {
	lower := strings.ToLower(diagnostic)
	for _, rule := range failureRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.reason
			}
		}
	}
	return core.FailDownload
}
