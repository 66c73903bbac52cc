package badger

import (
	"context"
	"errors"
	"time"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/dgraph-io/badger/v4"
)

// TranscriptRepository implements storage.TranscriptRepository for BadgerDB.
type TranscriptRepository struct {
	backend *Backend
}

var _ storage.TranscriptRepository = (*TranscriptRepository)(nil)

// NewTranscriptRepository creates a new TranscriptRepository.
func NewTranscriptRepository(backend *Backend) *TranscriptRepository {
	return &TranscriptRepository{backend: backend}
}

func (r *TranscriptRepository) Close() error {
	return nil
}

// SaveTranscript stores or replaces the transcript for a video.
func (r *TranscriptRepository) SaveTranscript(ctx context.Context, transcript *core.Transcript) error {
	if transcript == nil || transcript.VideoID == "" {
		return storage.ErrInvalidQuery
	}
	if transcript.CreatedAt.IsZero() {
		transcript.CreatedAt = time.Now().UTC()
	}
	value, err := storage.MarshalTranscript(transcript)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeTranscriptKey(transcript.VideoID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetTranscript retrieves the transcript for a video.
func (r *TranscriptRepository) GetTranscript(ctx context.Context, videoID string) (*core.Transcript, error) {
	var result *core.Transcript
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTranscriptKey(videoID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalTranscript(val)
			return err
		})
	}, false)
	return result, err
}

// ForEachTranscript calls fn for every stored transcript.
func (r *TranscriptRepository) ForEachTranscript(ctx context.Context, fn func(*core.Transcript) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.scanPrefix(ctx, tx, []byte(transcriptPrefix), func(_, val []byte) error {
			transcript, err := storage.UnmarshalTranscript(val)
			if err != nil {
				return err
			}
			return fn(transcript)
		})
	}, false)
}
