package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"storyboard-backend/internal/domain"
)

// SQLiteStore implements the job and file repositories on a local SQLite
// database. Intended for development and single-node deployments where
// Postgres is not available.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  status TEXT NOT NULL,
  progress INTEGER NOT NULL DEFAULT 0,
  message TEXT NOT NULL DEFAULT '',
  result_path TEXT NOT NULL DEFAULT '',
  result_json BLOB,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS files (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  filename TEXT NOT NULL,
  path TEXT NOT NULL,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  uploaded_at INTEGER NOT NULL
);
`); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create(ctx context.Context, job *domain.Job) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, kind, status, progress, message, result_path, result_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		string(job.Kind),
		string(job.Status),
		job.Progress,
		job.Message,
		job.ResultPath,
		job.ResultJSON,
		now,
		now,
	)
	return err
}

func (s *SQLiteStore) Update(ctx context.Context, jobID string, upd domain.JobUpdate) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs
		 SET status = COALESCE(?, status),
		     message = COALESCE(?, message),
		     progress = COALESCE(?, progress),
		     result_path = COALESCE(?, result_path),
		     result_json = COALESCE(?, result_json),
		     updated_at = ?
		 WHERE id = ?`,
		nullableStatus(upd.Status),
		nullableString(upd.Message),
		nullableInt(upd.Progress),
		nullableString(upd.ResultPath),
		nullableBytes(upd.Result),
		time.Now().UnixMilli(),
		jobID,
	)
	return err
}

func (s *SQLiteStore) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, status, progress, message, result_path, result_json, created_at, updated_at
		 FROM jobs WHERE id = ?`, jobID)
	return scanJob(row)
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, status, progress, message, result_path, result_json, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job                  domain.Job
		kind, status         string
		createdMs, updatedMs int64
		resultJSON           []byte
	)
	if err := row.Scan(
		&job.ID,
		&kind,
		&status,
		&job.Progress,
		&job.Message,
		&job.ResultPath,
		&resultJSON,
		&createdMs,
		&updatedMs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	job.ResultJSON = resultJSON
	job.CreatedAt = time.UnixMilli(createdMs)
	job.UpdatedAt = time.UnixMilli(updatedMs)
	return &job, nil
}

// SQLiteFiles exposes the file repository view of the store.
type SQLiteFiles struct {
	store *SQLiteStore
}

func (s *SQLiteStore) Files() *SQLiteFiles { return &SQLiteFiles{store: s} }

func (f *SQLiteFiles) Create(ctx context.Context, file *domain.FileRecord) error {
	_, err := f.store.db.ExecContext(ctx,
		`INSERT INTO files (id, kind, filename, path, size_bytes, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		file.ID,
		file.Kind,
		file.Filename,
		file.Path,
		file.SizeBytes,
		time.Now().UnixMilli(),
	)
	return err
}

func (f *SQLiteFiles) GetByID(ctx context.Context, fileID string) (*domain.FileRecord, error) {
	row := f.store.db.QueryRowContext(ctx,
		`SELECT id, kind, filename, path, size_bytes, uploaded_at FROM files WHERE id = ?`, fileID)
	var (
		file       domain.FileRecord
		uploadedMs int64
	)
	if err := row.Scan(&file.ID, &file.Kind, &file.Filename, &file.Path, &file.SizeBytes, &uploadedMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	file.UploadedAt = time.UnixMilli(uploadedMs)
	return &file, nil
}

func nullableStatus(s *domain.JobStatus) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

var (
	_ domain.JobRepository  = (*SQLiteStore)(nil)
	_ domain.FileRepository = (*SQLiteFiles)(nil)
)
