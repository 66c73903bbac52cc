// Package reembed backfills embeddings for transcript chunks stored
// without one, typically because the provider was unreachable while the
// pipeline ran.
//
// Chunks are processed in batches. Texts already embedded elsewhere in the
// store are reused by text hash; the rest go to the embedder in one batch
// call retried with exponential backoff. Progress is written to an
// io.Writer as the run advances.
package reembed
