package badger

import (
	"context"
	"errors"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/dgraph-io/badger/v4"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

func (r *ChunkRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.ScoredChunk, error) {
	return r.backend.FindSimilar(ctx, vector, limit)
}

// SaveChunk stores or replaces a chunk keyed by (video id, start ms).
func (r *ChunkRepository) SaveChunk(ctx context.Context, chunk *core.TranscriptChunk) error {
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}
	if chunk.TextHash == "" {
		chunk.TextHash = core.HashText(chunk.Text)
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeChunkKey(chunk.VideoID, chunk.StartMs)

		old, err := readChunk(tx, key)
		if err != nil {
			return err
		}
		if old != nil && old.TextHash != chunk.TextHash {
			if err := tx.Delete(makeChunkHashKey(old.TextHash, key)); err != nil {
				return err
			}
		}

		if err := writeChunk(tx, key, chunk); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindEmbeddingByTextHash returns the embedding of any embedded chunk with the
// given text hash, or nil, nil.
func (r *ChunkRepository) FindEmbeddingByTextHash(ctx context.Context, textHash string) ([]float32, error) {
	var embedding []float32
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkHashKey(textHash)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			chunkKey, err := iter.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			chunk, err := readChunk(tx, chunkKey)
			if err != nil {
				return err
			}
			if chunk != nil && len(chunk.Embedding) > 0 {
				embedding = chunk.Embedding
				return nil
			}
		}
		return nil
	}, false)
	return embedding, err
}

// ListChunksByVideo returns a video's chunks ordered by start time.
func (r *ChunkRepository) ListChunksByVideo(ctx context.Context, videoID string) ([]*core.TranscriptChunk, error) {
	var results []*core.TranscriptChunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Start times are big-endian encoded, so key order is time order
		return r.backend.scanPrefix(ctx, tx, makePartialChunkKey(videoID), func(_, val []byte) error {
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			results = append(results, chunk)
			return nil
		})
	}, false)
	return results, err
}

// ListChunksWithoutEmbedding returns every chunk whose embedding is nil.
func (r *ChunkRepository) ListChunksWithoutEmbedding(ctx context.Context) ([]*core.TranscriptChunk, error) {
	var results []*core.TranscriptChunk
	err := r.ForEachChunk(ctx, func(chunk *core.TranscriptChunk) error {
		if len(chunk.Embedding) == 0 {
			results = append(results, chunk)
		}
		return nil
	})
	return results, err
}

// UpdateChunkEmbedding sets the embedding of an existing chunk.
func (r *ChunkRepository) UpdateChunkEmbedding(ctx context.Context, videoID string, startMs int64, embedding []float32) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeChunkKey(videoID, startMs)
		chunk, err := readChunk(tx, key)
		if err != nil {
			return err
		}
		if chunk == nil {
			return storage.ErrNotFound
		}
		chunk.Embedding = embedding
		if err := writeChunk(tx, key, chunk); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ForEachChunk calls fn for every stored chunk.
func (r *ChunkRepository) ForEachChunk(ctx context.Context, fn func(*core.TranscriptChunk) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.scanPrefix(ctx, tx, []byte(chunkPrefix), func(_, val []byte) error {
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			return fn(chunk)
		})
	}, false)
}

// writeChunk stores the chunk and its text-hash index entry.
func writeChunk(tx *badger.Txn, key []byte, chunk *core.TranscriptChunk) error {
	value, err := storage.MarshalChunk(chunk)
	if err != nil {
		return err
	}
	if err := tx.Set(key, value); err != nil {
		return err
	}
	return tx.Set(makeChunkHashKey(chunk.TextHash, key), key)
}

func readChunk(tx *badger.Txn, key []byte) (*core.TranscriptChunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.TranscriptChunk
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	})
	return chunk, err
}
