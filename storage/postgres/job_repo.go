package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const jobColumns = `id, source_url, canonical_url_hash, platform, status, current_stage, fail_reason,
  title, duration_seconds, language, storage_path, created_at, updated_at`

type JobRepo struct {
	db *DB
}

var _ storage.JobRepository = (*JobRepo)(nil)

func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) Close() error {
	return nil
}

func (r *JobRepo) CreateJob(ctx context.Context, job *core.VideoJob) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO video_jobs (`+jobColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		job.ID, job.SourceURL, job.CanonicalURLHash, job.Platform, job.Status, job.CurrentStage, job.FailReason,
		job.Title, job.DurationSeconds, job.Language, job.StoragePath, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func (r *JobRepo) GetJob(ctx context.Context, id string) (*core.VideoJob, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM video_jobs WHERE id=$1`, id)
	return scanJob(row)
}

func (r *JobRepo) UpdateJob(ctx context.Context, job *core.VideoJob) error {
	n, err := r.update(ctx, job, "")
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TransitionJob updates the row only while its status and stage still match
// from, so a job failed elsewhere is never written forward.
func (r *JobRepo) TransitionJob(ctx context.Context, job *core.VideoJob, from core.JobState) error {
	status, stage := from.Fields()
	n, err := r.update(ctx, job, ` AND status=$10 AND current_stage=$11`, status, stage)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	current, err := r.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: job %s is %s, expected %s", storage.ErrConflict, job.ID, current.State(), from)
}

func (r *JobRepo) update(ctx context.Context, job *core.VideoJob, cond string, condArgs ...any) (int64, error) {
	if err := core.ValidateJob(job); err != nil {
		return 0, err
	}
	job.UpdatedAt = time.Now().UTC()
	args := []any{
		job.ID, job.Status, job.CurrentStage, job.FailReason, job.Title, job.DurationSeconds,
		job.Language, job.StoragePath, job.UpdatedAt,
	}
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE video_jobs SET
  status=$2, current_stage=$3, fail_reason=$4, title=$5, duration_seconds=$6,
  language=$7, storage_path=$8, updated_at=$9
WHERE id=$1`+cond, append(args, condArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("update job %s: %w", job.ID, err)
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepo) FindByCanonicalHash(ctx context.Context, hash string) (*core.VideoJob, error) {
	row := r.db.Pool.QueryRow(ctx, `
SELECT `+jobColumns+` FROM video_jobs
WHERE canonical_url_hash=$1
ORDER BY created_at DESC
LIMIT 1`, hash)
	return scanJob(row)
}

func (r *JobRepo) ListJobsByStatus(ctx context.Context, status core.Status) ([]*core.VideoJob, error) {
	return r.queryJobs(ctx, `SELECT `+jobColumns+` FROM video_jobs WHERE status=$1 ORDER BY created_at ASC`, status)
}

func (r *JobRepo) ListJobs(ctx context.Context) ([]*core.VideoJob, error) {
	return r.queryJobs(ctx, `SELECT `+jobColumns+` FROM video_jobs ORDER BY created_at ASC`)
}

func (r *JobRepo) queryJobs(ctx context.Context, sql string, args ...any) ([]*core.VideoJob, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []*core.VideoJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

func scanJob(row pgx.Row) (*core.VideoJob, error) {
	var job core.VideoJob
	err := row.Scan(&job.ID, &job.SourceURL, &job.CanonicalURLHash, &job.Platform, &job.Status,
		&job.CurrentStage, &job.FailReason, &job.Title, &job.DurationSeconds, &job.Language,
		&job.StoragePath, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &job, nil
}
