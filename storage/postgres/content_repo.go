package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/jackc/pgx/v5"
)

type TranscriptRepo struct {
	db *DB
}

var _ storage.TranscriptRepository = (*TranscriptRepo)(nil)

func NewTranscriptRepo(db *DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

func (r *TranscriptRepo) Close() error {
	return nil
}

func (r *TranscriptRepo) SaveTranscript(ctx context.Context, t *core.Transcript) error {
	if t == nil || t.VideoID == "" {
		return storage.ErrInvalidQuery
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO transcripts (video_id, full_text, language, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (video_id)
DO UPDATE SET full_text = EXCLUDED.full_text, language = EXCLUDED.language`,
		t.VideoID, t.FullText, t.Language, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert transcript %s: %w", t.VideoID, err)
	}
	return nil
}

func (r *TranscriptRepo) GetTranscript(ctx context.Context, videoID string) (*core.Transcript, error) {
	var t core.Transcript
	err := r.db.Pool.QueryRow(ctx, `
SELECT video_id, full_text, language, created_at FROM transcripts WHERE video_id=$1`, videoID).
		Scan(&t.VideoID, &t.FullText, &t.Language, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transcript %s: %w", videoID, err)
	}
	return &t, nil
}

func (r *TranscriptRepo) ForEachTranscript(ctx context.Context, fn func(*core.Transcript) error) error {
	rows, err := r.db.Pool.Query(ctx, `SELECT video_id, full_text, language, created_at FROM transcripts`)
	if err != nil {
		return fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t core.Transcript
		if err := rows.Scan(&t.VideoID, &t.FullText, &t.Language, &t.CreatedAt); err != nil {
			return fmt.Errorf("scan transcript: %w", err)
		}
		if err := fn(&t); err != nil {
			return err
		}
	}
	return rows.Err()
}

type NotesRepo struct {
	db *DB
}

var _ storage.NotesRepository = (*NotesRepo)(nil)

func NewNotesRepo(db *DB) *NotesRepo {
	return &NotesRepo{db: db}
}

func (r *NotesRepo) Close() error {
	return nil
}

func (r *NotesRepo) SaveNotes(ctx context.Context, notes *core.Notes) error {
	if notes == nil || notes.VideoID == "" {
		return storage.ErrInvalidQuery
	}
	if notes.CreatedAt.IsZero() {
		notes.CreatedAt = time.Now().UTC()
	}
	data, err := storage.MarshalNotes(notes)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO notes (video_id, data) VALUES ($1, $2)
ON CONFLICT (video_id) DO UPDATE SET data = EXCLUDED.data`, notes.VideoID, data)
	if err != nil {
		return fmt.Errorf("upsert notes %s: %w", notes.VideoID, err)
	}
	return nil
}

func (r *NotesRepo) GetNotes(ctx context.Context, videoID string) (*core.Notes, error) {
	var data []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT data FROM notes WHERE video_id=$1`, videoID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get notes %s: %w", videoID, err)
	}
	return storage.UnmarshalNotes(data)
}

func (r *NotesRepo) UpdateKeywords(ctx context.Context, videoID string, keywords []string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx update keywords: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var data []byte
	err = tx.QueryRow(ctx, `SELECT data FROM notes WHERE video_id=$1 FOR UPDATE`, videoID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock notes %s: %w", videoID, err)
	}
	notes, err := storage.UnmarshalNotes(data)
	if err != nil {
		return err
	}
	notes.Keywords = keywords
	if data, err = storage.MarshalNotes(notes); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE notes SET data=$2 WHERE video_id=$1`, videoID, data); err != nil {
		return fmt.Errorf("update keywords %s: %w", videoID, err)
	}
	return tx.Commit(ctx)
}

func (r *NotesRepo) ListNotes(ctx context.Context) ([]*core.Notes, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT data FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()
	var out []*core.Notes
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan notes: %w", err)
		}
		notes, err := storage.UnmarshalNotes(data)
		if err != nil {
			return nil, err
		}
		out = append(out, notes)
	}
	return out, rows.Err()
}
