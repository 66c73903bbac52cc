package ai

import (
	"context"

	"github.com/Mohit888790/clipbrain/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// NotesGenerator turns a transcript into structured study notes.
// Implementations must be thread-safe for concurrent use.
type NotesGenerator interface {
	// GenerateNotes extracts notes from transcript. Chapters are requested
	// only for videos at least ChapterMinDurationSeconds long.
	//
	// A response that cannot be parsed is not an error: the result comes back
	// with Parsed false and the provider text in RawText. An error is
	// returned only when ctx ends before a result is available.
	GenerateNotes(ctx context.Context, transcript string, durationSeconds float64) (*NotesResult, error)
}

// NotesResult is the outcome of a notes generation call.
type NotesResult struct {
	// Parsed reports whether the provider returned valid structured JSON.
	Parsed bool

	// Notes holds whatever fields were extracted. VideoID and CreatedAt are
	// left for the caller to fill.
	Notes core.Notes

	// RawText is the last provider output, kept when parsing failed.
	RawText string

	// Err describes the last failure when Parsed is false.
	Err error
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// NotesGenerator returns the notes generation service.
	NotesGenerator() NotesGenerator

	// Close releases resources held by the provider and its services.
	Close() error
}
