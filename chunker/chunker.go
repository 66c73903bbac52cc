// Package chunker splits word-level transcripts into overlapping,
// time-windowed segments suitable for embedding and retrieval.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Mohit888790/clipbrain/core"
)

const (
	// DefaultChunkDurationMs is the target span of a chunk.
	DefaultChunkDurationMs = 12500

	// DefaultOverlapMs is how much of a closed chunk is carried into the next one.
	DefaultOverlapMs = 1500
)

// ErrInvalidConfig is returned when the duration and overlap are inconsistent.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// Chunker turns ordered word timestamps into ordered transcript chunks.
// A Chunker holds no mutable state and is safe for concurrent use.
type Chunker struct {
	durationMs int64
	overlapMs  int64
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithDuration sets the target chunk duration in milliseconds.
func WithDuration(ms int64) Option {
	return func(c *Chunker) error {
		c.durationMs = ms
		return nil
	}
}

// WithOverlap sets the overlap window in milliseconds.
func WithOverlap(ms int64) Option {
	return func(c *Chunker) error {
		c.overlapMs = ms
		return nil
	}
}

// New creates a Chunker. The overlap must be non-negative and shorter than the duration.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		durationMs: DefaultChunkDurationMs,
		overlapMs:  DefaultOverlapMs,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.durationMs <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidConfig, c.durationMs)
	}
	if c.overlapMs < 0 || c.overlapMs >= c.durationMs {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfig, c.overlapMs, c.durationMs)
	}
	return c, nil
}

// Default returns a Chunker with the default duration and overlap.
func Default() *Chunker {
	return &Chunker{durationMs: DefaultChunkDurationMs, overlapMs: DefaultOverlapMs}
}

// Chunk accumulates words until the span from the chunk start to the latest
// word's end reaches the target duration, then closes the chunk at that word
// boundary. The next chunk starts with the closed chunk's words that begin
// within the last overlap window; if there are none it starts at the next word.
// Every chunk ends after it starts.
// VideoID is left empty on the returned chunks.
func (c *Chunker) Chunk(words []core.WordTimestamp) []core.TranscriptChunk {
	if len(words) == 0 {
		return nil
	}

	var chunks []core.TranscriptChunk
	current := make([]core.WordTimestamp, 0, 64)
	chunkStart := words[0].StartMs

	for i, word := range words {
		current = append(current, word)

		isLast := i == len(words)-1
		if word.EndMs-chunkStart < c.durationMs && !isLast {
			continue
		}

		// Chunks always span at least 1ms, even over zero-length words.
		chunkEnd := max(current[len(current)-1].EndMs, chunkStart+1)
		chunks = append(chunks, newChunk(chunkStart, chunkEnd, current))

		if isLast {
			break
		}

		overlapStart := chunkEnd - c.overlapMs
		carried := make([]core.WordTimestamp, 0, len(current))
		for _, w := range current {
			if w.StartMs >= overlapStart {
				carried = append(carried, w)
			}
		}

		if len(carried) > 0 {
			current = carried
			chunkStart = carried[0].StartMs
		} else {
			current = current[:0]
			chunkStart = words[i+1].StartMs
		}
	}

	return chunks
}

func newChunk(start, end int64, words []core.WordTimestamp) core.TranscriptChunk {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Word
	}
	text := strings.Join(parts, " ")
	return core.TranscriptChunk{
		StartMs:  start,
		EndMs:    end,
		Text:     text,
		TextHash: core.HashText(text),
	}
}
