package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storyboard-backend/internal/domain"
)

// FileRepositoryPG implements domain.FileRepository on PostgreSQL.
type FileRepositoryPG struct {
	pool *pgxpool.Pool
}

func NewFileRepository(pool *pgxpool.Pool) *FileRepositoryPG {
	return &FileRepositoryPG{pool: pool}
}

func (r *FileRepositoryPG) Create(ctx context.Context, file *domain.FileRecord) error {
	query := `
INSERT INTO files (id, kind, filename, path, size_bytes)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := r.pool.Exec(ctx, query,
		file.ID,
		file.Kind,
		file.Filename,
		file.Path,
		file.SizeBytes,
	)
	return err
}

func (r *FileRepositoryPG) GetByID(ctx context.Context, fileID string) (*domain.FileRecord, error) {
	query := `
SELECT id, kind, filename, path, size_bytes, uploaded_at
FROM files
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, fileID)
	var file domain.FileRecord
	if err := row.Scan(
		&file.ID,
		&file.Kind,
		&file.Filename,
		&file.Path,
		&file.SizeBytes,
		&file.UploadedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

var _ domain.FileRepository = (*FileRepositoryPG)(nil)
