package openai

import (
	"strings"
	"unicode/utf8"

	"github.com/Mohit888790/clipbrain/ai"
)

// truncateTranscript cuts s to at most limit characters and appends the
// truncation marker when anything was cut.
func truncateTranscript(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + ai.TruncationMarker
}

// stripCodeFences removes a surrounding markdown code block, if any.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
