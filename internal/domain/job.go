package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a bulk generation or
// analysis job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending        JobStatus = "pending"
	JobStatusRunning        JobStatus = "running"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusFailed         JobStatus = "failed"
	JobStatusPartialFailure JobStatus = "partial_failure"
)

// Common validation errors for Job
var (
	ErrEmptyJobID        = errors.New("job ID cannot be empty")
	ErrJobTotalNegative  = errors.New("job total count cannot be negative")
	ErrJobCountsExceeded = errors.New("job completed+failed counts exceed total")
)

// Job tracks one bulk run of generation or analysis across many work
// items. Counters are mutated only by the orchestrator, after each
// batch completes; the status becomes terminal exactly once, after the
// last batch has drained.
type Job struct {
	ID             uuid.UUID  `json:"id"`
	TotalCount     int        `json:"total_count"`
	CompletedCount int        `json:"completed_count"`
	FailedCount    int        `json:"failed_count"`
	Status         JobStatus  `json:"status"`
	ErrorSummary   string     `json:"error_summary,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending Job covering totalCount work items.
// It generates a new UUID for the job ID and sets the creation timestamp.
// Returns an error if validation fails.
func NewJob(totalCount int) (*Job, error) {
	job := &Job{
		ID:         uuid.New(),
		TotalCount: totalCount,
		Status:     JobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
// Returns an error if any field fails validation.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if j.TotalCount < 0 {
		return ErrJobTotalNegative
	}

	if j.CompletedCount+j.FailedCount > j.TotalCount {
		return ErrJobCountsExceeded
	}

	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	return nil
}

// ProgressPercentage reports dispatch progress as a percentage of the
// total item count. Failed items count as dispatched, so a fully
// drained job always reads 100 regardless of outcome. A zero-item job
// is considered fully dispatched.
func (j *Job) ProgressPercentage() float64 {
	if j.TotalCount == 0 {
		return 100.0
	}
	return float64(j.CompletedCount+j.FailedCount) / float64(j.TotalCount) * 100.0
}

// TerminalStatus derives the terminal status from the job's counters.
// It does not mutate the job; callers apply the result once all items
// have been dispatched.
func (j *Job) TerminalStatus() JobStatus {
	switch {
	case j.FailedCount == 0:
		return JobStatusCompleted
	case j.CompletedCount > 0:
		return JobStatusPartialFailure
	default:
		return JobStatusFailed
	}
}

// IsTerminal reports whether the status is one of the terminal states.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusPartialFailure:
		return true
	default:
		return false
	}
}

// isValidJobStatus checks if the given status is a valid JobStatus.
func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted,
		JobStatusFailed, JobStatusPartialFailure:
		return true
	default:
		return false
	}
}
