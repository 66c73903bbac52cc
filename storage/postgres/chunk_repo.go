package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/jackc/pgx/v5"
)

const chunkColumns = `video_id, start_ms, end_ms, text, text_hash, embedding::text`

type ChunkRepo struct {
	db *DB
}

var _ storage.ChunkRepository = (*ChunkRepo)(nil)

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) Close() error {
	return nil
}

func (r *ChunkRepo) SaveChunk(ctx context.Context, c *core.TranscriptChunk) error {
	if err := core.ValidateChunk(c); err != nil {
		return err
	}
	if c.TextHash == "" {
		c.TextHash = core.HashText(c.Text)
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO transcript_chunks (video_id, start_ms, end_ms, text, text_hash, embedding)
VALUES ($1, $2, $3, $4, $5, CASE WHEN $6::text IS NULL THEN NULL ELSE $6::vector END)
ON CONFLICT (video_id, start_ms)
DO UPDATE SET
  end_ms = EXCLUDED.end_ms,
  text = EXCLUDED.text,
  text_hash = EXCLUDED.text_hash,
  embedding = EXCLUDED.embedding`,
		c.VideoID, c.StartMs, c.EndMs, c.Text, c.TextHash, literalOrNil(c.Embedding),
	)
	if err != nil {
		return fmt.Errorf("upsert chunk %s@%d: %w", c.VideoID, c.StartMs, err)
	}
	return nil
}

func (r *ChunkRepo) FindEmbeddingByTextHash(ctx context.Context, textHash string) ([]float32, error) {
	var lit string
	err := r.db.Pool.QueryRow(ctx, `
SELECT embedding::text FROM transcript_chunks
WHERE text_hash=$1 AND embedding IS NOT NULL
LIMIT 1`, textHash).Scan(&lit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup embedding by hash: %w", err)
	}
	return ParseLiteral(lit)
}

func (r *ChunkRepo) ListChunksByVideo(ctx context.Context, videoID string) ([]*core.TranscriptChunk, error) {
	return r.queryChunks(ctx, `SELECT `+chunkColumns+` FROM transcript_chunks WHERE video_id=$1 ORDER BY start_ms ASC`, videoID)
}

func (r *ChunkRepo) ListChunksWithoutEmbedding(ctx context.Context) ([]*core.TranscriptChunk, error) {
	return r.queryChunks(ctx, `SELECT `+chunkColumns+` FROM transcript_chunks WHERE embedding IS NULL ORDER BY video_id, start_ms`)
}

func (r *ChunkRepo) UpdateChunkEmbedding(ctx context.Context, videoID string, startMs int64, embedding []float32) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE transcript_chunks
SET embedding = CASE WHEN $3::text IS NULL THEN NULL ELSE $3::vector END
WHERE video_id=$1 AND start_ms=$2`, videoID, startMs, literalOrNil(embedding))
	if err != nil {
		return fmt.Errorf("update chunk embedding %s@%d: %w", videoID, startMs, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *ChunkRepo) FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.ScoredChunk, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT `+chunkColumns+`,
       CASE WHEN vector_norm(embedding) = 0 OR vector_norm($1::vector) = 0 THEN 0
            ELSE 1 - (embedding <=> $1::vector) END AS score
FROM transcript_chunks
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1::vector
LIMIT $2`, ToLiteral(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]*core.ScoredChunk, 0, limit)
	for rows.Next() {
		var (
			c     core.TranscriptChunk
			lit   *string
			score float64
		)
		if err := rows.Scan(&c.VideoID, &c.StartMs, &c.EndMs, &c.Text, &c.TextHash, &lit, &score); err != nil {
			return nil, fmt.Errorf("scan vector result: %w", err)
		}
		if err := setEmbedding(&c, lit); err != nil {
			return nil, err
		}
		results = append(results, &core.ScoredChunk{Chunk: &c, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector rows: %w", err)
	}
	return results, nil
}

func (r *ChunkRepo) ForEachChunk(ctx context.Context, fn func(*core.TranscriptChunk) error) error {
	chunks, err := r.queryChunks(ctx, `SELECT `+chunkColumns+` FROM transcript_chunks ORDER BY video_id, start_ms`)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *ChunkRepo) queryChunks(ctx context.Context, sql string, args ...any) ([]*core.TranscriptChunk, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()
	var out []*core.TranscriptChunk
	for rows.Next() {
		var (
			c   core.TranscriptChunk
			lit *string
		)
		if err := rows.Scan(&c.VideoID, &c.StartMs, &c.EndMs, &c.Text, &c.TextHash, &lit); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := setEmbedding(&c, lit); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func setEmbedding(c *core.TranscriptChunk, lit *string) error {
	if lit == nil {
		return nil
	}
	v, err := ParseLiteral(*lit)
	if err != nil {
		return err
	}
	c.Embedding = v
	return nil
}
