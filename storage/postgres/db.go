// Package postgres implements the storage repositories on PostgreSQL with the
// pgvector extension. Vector similarity is computed by the database with the
// cosine distance operator.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Mohit888790/clipbrain/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS video_jobs (
  id                 TEXT PRIMARY KEY,
  source_url         TEXT NOT NULL,
  canonical_url_hash TEXT NOT NULL,
  platform           TEXT NOT NULL,
  status             TEXT NOT NULL,
  current_stage      TEXT NOT NULL DEFAULT '',
  fail_reason        TEXT NOT NULL DEFAULT '',
  title              TEXT NOT NULL DEFAULT '',
  duration_seconds   DOUBLE PRECISION NOT NULL DEFAULT 0,
  language           TEXT NOT NULL DEFAULT '',
  storage_path       TEXT NOT NULL DEFAULT '',
  created_at         TIMESTAMPTZ NOT NULL,
  updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS video_jobs_hash_idx ON video_jobs (canonical_url_hash, created_at DESC);
CREATE INDEX IF NOT EXISTS video_jobs_status_idx ON video_jobs (status);

CREATE TABLE IF NOT EXISTS transcripts (
  video_id   TEXT PRIMARY KEY,
  full_text  TEXT NOT NULL,
  language   TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
  video_id TEXT PRIMARY KEY,
  data     JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS transcript_chunks (
  video_id  TEXT NOT NULL,
  start_ms  BIGINT NOT NULL,
  end_ms    BIGINT NOT NULL,
  text      TEXT NOT NULL,
  text_hash TEXT NOT NULL,
  embedding vector,
  PRIMARY KEY (video_id, start_ms)
);
CREATE INDEX IF NOT EXISTS transcript_chunks_hash_idx ON transcript_chunks (text_hash);
`

// DB holds the connection pool shared by the repositories.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewDB connects to dsn and creates the schema if it is missing.
func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db := &DB{Pool: pool, logger: slog.Default().With("component", "postgres")}
	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) ensureSchema(ctx context.Context) error {
	if _, err := d.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	d.logger.Debug("schema ready")
	return nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

// NewRepositories builds every repository on top of db.
func NewRepositories(db *DB) *storage.Repositories {
	return &storage.Repositories{
		Jobs:        NewJobRepo(db),
		Transcripts: NewTranscriptRepo(db),
		Notes:       NewNotesRepo(db),
		Chunks:      NewChunkRepo(db),
	}
}
