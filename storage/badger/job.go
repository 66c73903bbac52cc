package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohit888790/clipbrain/core"
	"github.com/Mohit888790/clipbrain/storage"
	"github.com/dgraph-io/badger/v4"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) *JobRepository {
	return &JobRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *JobRepository) Close() error {
	return nil
}

// CreateJob stores a new job and its canonical hash index entry.
func (r *JobRepository) CreateJob(ctx context.Context, job *core.VideoJob) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(job.ID)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		job.CreatedAt = time.Now().UTC()
		job.UpdatedAt = job.CreatedAt

		value, err := storage.MarshalJob(job)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		if job.CanonicalURLHash != "" {
			hashKey := makeJobHashKey(job.CanonicalURLHash, job.CreatedAt, job.ID)
			if err := tx.Set(hashKey, []byte(job.ID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetJob retrieves a job by ID.
func (r *JobRepository) GetJob(ctx context.Context, id string) (*core.VideoJob, error) {
	var result *core.VideoJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readJob(tx, makeJobKey(id))
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

// UpdateJob replaces a stored job. CreatedAt and the canonical hash are
// preserved from the stored record.
func (r *JobRepository) UpdateJob(ctx context.Context, job *core.VideoJob) error {
	return r.write(job, nil)
}

// TransitionJob replaces a stored job that is still in state from. A write
// racing another transaction on the same job loses with ErrConflict.
func (r *JobRepository) TransitionJob(ctx context.Context, job *core.VideoJob, from core.JobState) error {
	err := r.write(job, func(old *core.VideoJob) error {
		if state := old.State(); state != from {
			return fmt.Errorf("%w: job %s is %s, expected %s", storage.ErrConflict, job.ID, state, from)
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: job %s: %w", storage.ErrConflict, job.ID, err)
	}
	return err
}

func (r *JobRepository) write(job *core.VideoJob, check func(old *core.VideoJob) error) error {
	if err := core.ValidateJob(job); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(job.ID)
		old, err := readJob(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		if check != nil {
			if err := check(old); err != nil {
				return err
			}
		}

		job.CreatedAt = old.CreatedAt
		job.CanonicalURLHash = old.CanonicalURLHash
		job.UpdatedAt = time.Now().UTC()

		value, err := storage.MarshalJob(job)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindByCanonicalHash returns the newest job recorded for hash.
func (r *JobRepository) FindByCanonicalHash(ctx context.Context, hash string) (*core.VideoJob, error) {
	var result *core.VideoJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialJobHashKey(hash)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the last possible key under the prefix
		seek := append(append([]byte{}, prefix...), 0xFF)
		for iter.Seek(seek); iter.Valid(); iter.Next() {
			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			job, err := readJob(tx, makeJobKey(id))
			if err != nil {
				return err
			}
			if job != nil {
				result = job
				return nil
			}
		}
		return storage.ErrNotFound
	}, false)
	return result, err
}

// ListJobsByStatus returns all jobs with the given status.
func (r *JobRepository) ListJobsByStatus(ctx context.Context, status core.Status) ([]*core.VideoJob, error) {
	return r.listJobs(ctx, func(job *core.VideoJob) bool {
		return job.Status == status
	})
}

// ListJobs returns every job.
func (r *JobRepository) ListJobs(ctx context.Context) ([]*core.VideoJob, error) {
	return r.listJobs(ctx, func(*core.VideoJob) bool { return true })
}

func (r *JobRepository) listJobs(ctx context.Context, keep func(*core.VideoJob) bool) ([]*core.VideoJob, error) {
	var results []*core.VideoJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.scanPrefix(ctx, tx, []byte(jobPrefix), func(_, val []byte) error {
			job, err := storage.UnmarshalJob(val)
			if err != nil {
				return err
			}
			if keep(job) {
				results = append(results, job)
			}
			return nil
		})
	}, false)
	return results, err
}

// readJob returns nil, nil when the key is absent.
func readJob(tx *badger.Txn, key []byte) (*core.VideoJob, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var job *core.VideoJob
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}
