package job

import (
	"context"

	"github.com/google/uuid"
	"github.com/percept-ai/percept-api/internal/domain"
)

// JobStore defines the persistence interface for jobs. The
// orchestrator is write-only toward it: progress is pushed out after
// each batch and never read back.
type JobStore interface {
	// CreateJob persists a newly created job.
	CreateJob(ctx context.Context, job *domain.Job) error

	// UpdateJobProgress persists the job's counters after a batch drains.
	UpdateJobProgress(ctx context.Context, jobID uuid.UUID, completed, failed int) error

	// CompleteJob sets the job's terminal status, completion timestamp,
	// and optional error summary.
	CompleteJob(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, errorSummary string) error
}

// RecordStore defines the persistence interface for parsed records.
type RecordStore interface {
	// SaveRecords persists a batch of records.
	SaveRecords(ctx context.Context, records []*domain.Record) error
}
