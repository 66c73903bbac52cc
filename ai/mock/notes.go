package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/Mohit888790/clipbrain/ai"
	"github.com/Mohit888790/clipbrain/core"
)

// MockNotesGenerator is a test double for ai.NotesGenerator.
type MockNotesGenerator struct {
	// GenerateNotesFunc is called by GenerateNotes if set.
	// If nil, builds notes from the first words of the transcript.
	GenerateNotesFunc func(ctx context.Context, transcript string, durationSeconds float64) (*ai.NotesResult, error)

	callCount atomic.Int64
}

// NewMockNotesGenerator creates a mock notes generator with default behavior.
func NewMockNotesGenerator() *MockNotesGenerator {
	return &MockNotesGenerator{}
}

// GenerateNotes returns canned notes. Default behavior: the summary is the
// first sentence and keywords are the first distinct words.
func (m *MockNotesGenerator) GenerateNotes(ctx context.Context, transcript string, durationSeconds float64) (*ai.NotesResult, error) {
	m.callCount.Add(1)

	if m.GenerateNotesFunc != nil {
		return m.GenerateNotesFunc(ctx, transcript, durationSeconds)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary, _, _ := strings.Cut(transcript, ".")
	seen := make(map[string]bool)
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(transcript)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == ai.MaxKeywords {
			break
		}
	}

	notes := core.Notes{Summary: strings.TrimSpace(summary), Keywords: keywords}
	if durationSeconds >= ai.ChapterMinDurationSeconds {
		notes.Chapters = []core.Chapter{{Title: "Introduction", StartMs: 0}}
	}
	return &ai.NotesResult{Parsed: true, Notes: notes}, nil
}

// Unparsable returns a GenerateNotesFunc that always reports a parse failure
// carrying raw as the provider text.
func Unparsable(raw string) func(context.Context, string, float64) (*ai.NotesResult, error) {
	return func(ctx context.Context, _ string, _ float64) (*ai.NotesResult, error) {
		return &ai.NotesResult{Parsed: false, RawText: raw}, nil
	}
}

// CallCount returns the number of times GenerateNotes was called.
func (m *MockNotesGenerator) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockNotesGenerator) Reset() {
	m.callCount.Store(0)
	m.GenerateNotesFunc = nil
}
