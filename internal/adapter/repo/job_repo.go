// Package repo provides database-backed implementations of the domain
// repository contracts.
package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storyboard-backend/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, kind, status, progress, message, result_path, result_json)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Kind,
		job.Status,
		job.Progress,
		job.Message,
		job.ResultPath,
		nullableBytes(job.ResultJSON),
	)
	return err
}

// Update applies a partial update: nil fields keep their stored values.
func (r *JobRepositoryPG) Update(ctx context.Context, jobID string, upd domain.JobUpdate) error {
	query := `
UPDATE jobs
SET status = COALESCE($2, status),
    message = COALESCE($3, message),
    progress = COALESCE($4, progress),
    result_path = COALESCE($5, result_path),
    result_json = COALESCE($6, result_json),
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query,
		jobID,
		(*string)(upd.Status),
		upd.Message,
		upd.Progress,
		upd.ResultPath,
		nullableBytes(upd.Result),
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT id, kind, status, progress, message, result_path, result_json, created_at, updated_at
FROM jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.Kind,
		&job.Status,
		&job.Progress,
		&job.Message,
		&job.ResultPath,
		&job.ResultJSON,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// List returns the most recent jobs.
func (r *JobRepositoryPG) List(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 25
	}
	query := `
SELECT id, kind, status, progress, message, result_path, result_json, created_at, updated_at
FROM jobs
ORDER BY created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		if err := rows.Scan(
			&job.ID,
			&job.Kind,
			&job.Status,
			&job.Progress,
			&job.Message,
			&job.ResultPath,
			&job.ResultJSON,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
