package reembed

import "errors"

var (
	// ErrChunksRequired is returned when no chunk repository is provided.
	ErrChunksRequired = errors.New("chunk repository required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmbeddingCountMismatch is returned when a batch call returns a
	// different number of vectors than texts sent.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)
