package ai

const (
	// ChapterMinDurationSeconds is the shortest video for which chapters are requested.
	ChapterMinDurationSeconds = 300

	// MaxTranscriptChars bounds the transcript sent for notes generation.
	MaxTranscriptChars = 30000

	// TruncationMarker is appended to a transcript cut at MaxTranscriptChars.
	TruncationMarker = "\n\n[Transcript truncated...]"

	// MaxKeywords bounds the keyword list requested from the model.
	MaxKeywords = 12
)
