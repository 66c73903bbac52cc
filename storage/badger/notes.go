package badger

import (
	"context"
	"errors"
	"time"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/dgraph-io/badger/v4"
)

// NotesRepository implements storage.NotesRepository for BadgerDB.
type NotesRepository struct {
	backend *Backend
}

var _ storage.NotesRepository = (*NotesRepository)(nil)

// NewNotesRepository creates a new NotesRepository.
func NewNotesRepository(backend *Backend) *NotesRepository {
	return &NotesRepository{backend: backend}
}

func (r *NotesRepository) Close() error {
	return nil
}

// SaveNotes stores or replaces the notes for a video.
func (r *NotesRepository) SaveNotes(ctx context.Context, notes *core.Notes) error {
	if notes == nil || notes.VideoID == "" {
		return storage.ErrInvalidQuery
	}
	if notes.CreatedAt.IsZero() {
		notes.CreatedAt = time.Now().UTC()
	}
	value, err := storage.MarshalNotes(notes)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeNotesKey(notes.VideoID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetNotes retrieves the notes for a video.
func (r *NotesRepository) GetNotes(ctx context.Context, videoID string) (*core.Notes, error) {
	var result *core.Notes
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readNotes(tx, makeNotesKey(videoID))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// UpdateKeywords replaces the keyword list of existing notes.
func (r *NotesRepository) UpdateKeywords(ctx context.Context, videoID string, keywords []string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeNotesKey(videoID)
		notes, err := readNotes(tx, key)
		if err != nil {
			return err
		}
		if notes == nil {
			return storage.ErrNotFound
		}
		notes.Keywords = keywords
		value, err := storage.MarshalNotes(notes)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListNotes returns the notes of every video.
func (r *NotesRepository) ListNotes(ctx context.Context) ([]*core.Notes, error) {
	var results []*core.Notes
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.scanPrefix(ctx, tx, []byte(notesPrefix), func(_, val []byte) error {
			notes, err := storage.UnmarshalNotes(val)
			if err != nil {
				return err
			}
			results = append(results, notes)
			return nil
		})
	}, false)
	return results, err
}

func readNotes(tx *badger.Txn, key []byte) (*core.Notes, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var notes *core.Notes
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		notes, unmarshalErr = storage.UnmarshalNotes(val)
		return unmarshalErr
	})
	return notes, err
}
