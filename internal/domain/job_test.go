package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	job, err := NewJob(25)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, 25, job.TotalCount)
	assert.Equal(t, 0, job.CompletedCount)
	assert.Equal(t, 0, job.FailedCount)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.CompletedAt)
}

func TestNewJobNegativeTotal(t *testing.T) {
	_, err := NewJob(-1)
	assert.ErrorIs(t, err, ErrJobTotalNegative)
}

func TestJobValidateCountsInvariant(t *testing.T) {
	job, err := NewJob(10)
	require.NoError(t, err)

	job.CompletedCount = 7
	job.FailedCount = 3
	assert.NoError(t, job.Validate())

	job.FailedCount = 4
	assert.ErrorIs(t, job.Validate(), ErrJobCountsExceeded)
}

func TestJobTerminalStatus(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		failed    int
		total     int
		want      JobStatus
	}{
		{"all succeeded", 10, 0, 10, JobStatusCompleted},
		{"mixed outcome", 8, 2, 10, JobStatusPartialFailure},
		{"all failed", 0, 5, 5, JobStatusFailed},
		{"zero items", 0, 0, 0, JobStatusCompleted},
		{"single success", 1, 0, 1, JobStatusCompleted},
		{"single failure", 0, 1, 1, JobStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{
				ID:             uuid.New(),
				TotalCount:     tt.total,
				CompletedCount: tt.completed,
				FailedCount:    tt.failed,
				Status:         JobStatusRunning,
			}
			assert.Equal(t, tt.want, job.TerminalStatus())
		})
	}
}

func TestJobProgressPercentage(t *testing.T) {
	job := &Job{ID: uuid.New(), TotalCount: 10, CompletedCount: 4, Status: JobStatusRunning}
	assert.InDelta(t, 40.0, job.ProgressPercentage(), 0.001)

	// Failed items count as dispatched.
	job.FailedCount = 2
	assert.InDelta(t, 60.0, job.ProgressPercentage(), 0.001)

	job.CompletedCount = 8
	assert.InDelta(t, 100.0, job.ProgressPercentage(), 0.001)

	empty := &Job{ID: uuid.New(), TotalCount: 0, Status: JobStatusPending}
	assert.InDelta(t, 100.0, empty.ProgressPercentage(), 0.001)
}

func TestJobStatusIsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.True(t, JobStatusPartialFailure.IsTerminal())
}

func TestJobValidateRejectsUnknownStatus(t *testing.T) {
	job, err := NewJob(1)
	require.NoError(t, err)

	job.Status = JobStatus("bogus")
	assert.ErrorIs(t, job.Validate(), ErrInvalidJobStatus)
}
