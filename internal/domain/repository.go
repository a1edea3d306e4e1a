package domain

import "context"

// JobUpdate is a partial update of a job record. Nil fields leave the stored
// value unchanged; Result replaces the payload only when non-empty.
type JobUpdate struct {
	Status     *JobStatus
	Message    *string
	Progress   *int
	ResultPath *string
	Result     []byte
}

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, jobID string, upd JobUpdate) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	List(ctx context.Context, limit int) ([]Job, error)
}

// FileRepository defines persistence for uploaded file records.
type FileRepository interface {
	Create(ctx context.Context, file *FileRecord) error
	GetByID(ctx context.Context, fileID string) (*FileRecord, error)
}
