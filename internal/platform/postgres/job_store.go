// Package postgres implements the repository interfaces over a
// PostgreSQL database accessed through store.DBTX.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/percept-ai/percept-api/internal/domain"
	"github.com/percept-ai/percept-api/internal/platform/logger"
	"github.com/percept-ai/percept-api/internal/store"
)

// PostgresJobStore implements the job.JobStore interface using PostgreSQL.
type PostgresJobStore struct {
	db store.DBTX
}

// NewPostgresJobStore creates a new PostgresJobStore.
func NewPostgresJobStore(db store.DBTX) *PostgresJobStore {
	return &PostgresJobStore{
		db: db,
	}
}

// CreateJob persists a newly created job.
func (s *PostgresJobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO jobs (id, total_count, completed_count, failed_count, status, error_summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.TotalCount,
		job.CompletedCount,
		job.FailedCount,
		job.Status,
		job.ErrorSummary,
		job.CreatedAt,
		now,
	)

	if err != nil {
		log.Error("failed to create job",
			"job_id", job.ID,
			"error", err)
		return fmt.Errorf("failed to save job to database: %w", err)
	}

	return nil
}

// UpdateJobProgress persists the job's counters after a batch drains.
// A pending job is promoted to running on its first progress write.
func (s *PostgresJobStore) UpdateJobProgress(ctx context.Context, jobID uuid.UUID, completed, failed int) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE jobs
		SET completed_count = $1,
		    failed_count = $2,
		    status = CASE WHEN status = 'pending' THEN 'running' ELSE status END,
		    updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		completed,
		failed,
		time.Now().UTC(),
		jobID,
	)

	if err != nil {
		log.Error("failed to update job progress",
			"job_id", jobID,
			"error", err)
		return fmt.Errorf("failed to update job progress: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Warn("no job found with ID to update progress",
			"job_id", jobID)
		return store.ErrNotFound
	}

	return nil
}

// CompleteJob sets the job's terminal status, completion timestamp,
// and optional error summary.
func (s *PostgresJobStore) CompleteJob(ctx context.Context, jobID uuid.UUID, status domain.JobStatus, errorSummary string) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE jobs
		SET status = $1, error_summary = $2, completed_at = $3, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		status,
		errorSummary,
		time.Now().UTC(),
		jobID,
	)

	if err != nil {
		log.Error("failed to complete job",
			"job_id", jobID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to complete job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Warn("no job found with ID to complete",
			"job_id", jobID)
		return store.ErrNotFound
	}

	return nil
}
