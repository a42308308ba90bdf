// Package job owns the lifecycle of bulk generation and analysis jobs:
// it creates the job record, drives batched execution, folds batch
// results into progress counters, and derives the terminal status.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/percept-ai/percept-api/internal/batch"
	"github.com/percept-ai/percept-api/internal/domain"
)

// Common errors
var (
	ErrNilScheduler = errors.New("scheduler cannot be nil")
	ErrNilJobStore  = errors.New("job store cannot be nil")
	ErrNilProcessor = errors.New("item processor cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
	ErrNoWorkItems  = errors.New("job requires at least one work item")
)

// maxSummaryErrors bounds how many item errors go into the
// human-readable error summary.
const maxSummaryErrors = 3

// maxTerminalSnapshots bounds how many finished jobs stay queryable in
// memory. Older terminal jobs are evicted oldest-first; status queries
// for evicted jobs report not-found.
const maxTerminalSnapshots = 1024

// ItemProcessor handles one work item end to end. Implementations
// bundle prompt construction, the LLM call, and response parsing.
type ItemProcessor interface {
	ProcessItem(ctx context.Context, item domain.WorkItem, personas []domain.Persona) batch.ItemResult
}

// Status is a point-in-time snapshot of a job's progress.
type Status struct {
	JobID              uuid.UUID        `json:"job_id"`
	Status             domain.JobStatus `json:"status"`
	Completed          int              `json:"completed"`
	Failed             int              `json:"failed"`
	Total              int              `json:"total"`
	ProgressPercentage float64          `json:"progress_percentage"`
	ErrorSummary       string           `json:"error_summary,omitempty"`
}

// Orchestrator runs jobs asynchronously. Job counters have a single
// writer (the goroutine driving the job); the mutex only guards
// snapshot reads for status queries.
type Orchestrator struct {
	jobs      JobStore
	records   RecordStore
	scheduler *batch.Scheduler
	processor ItemProcessor
	logger    *slog.Logger

	mu        sync.Mutex
	snapshots map[uuid.UUID]*domain.Job
	// terminal tracks finished jobs in completion order so snapshots
	// can be evicted oldest-first once maxTerminal is exceeded.
	terminal    []uuid.UUID
	maxTerminal int

	wg sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	jobs JobStore,
	records RecordStore,
	scheduler *batch.Scheduler,
	processor ItemProcessor,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if jobs == nil {
		return nil, ErrNilJobStore
	}
	if scheduler == nil {
		return nil, ErrNilScheduler
	}
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &Orchestrator{
		jobs:        jobs,
		records:     records,
		scheduler:   scheduler,
		processor:   processor,
		logger:      logger,
		snapshots:   make(map[uuid.UUID]*domain.Job),
		maxTerminal: maxTerminalSnapshots,
	}, nil
}

// StartJob creates a job covering the given work items and returns its
// ID immediately; processing proceeds asynchronously. Once started, a
// job runs to completion.
func (o *Orchestrator) StartJob(ctx context.Context, items []domain.WorkItem, personas []domain.Persona) (uuid.UUID, error) {
	if len(items) == 0 {
		return uuid.Nil, ErrNoWorkItems
	}

	job, err := domain.NewJob(len(items))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := o.jobs.CreateJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to persist job: %w", err)
	}

	o.mu.Lock()
	o.snapshots[job.ID] = job
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		// The job outlives the request that started it.
		o.runJob(context.Background(), job, items, personas)
	}()

	return job.ID, nil
}

// GetJobStatus returns a point-in-time snapshot of the job's progress.
func (o *Orchestrator) GetJobStatus(jobID uuid.UUID) (*Status, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.snapshots[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	return &Status{
		JobID:              job.ID,
		Status:             job.Status,
		Completed:          job.CompletedCount,
		Failed:             job.FailedCount,
		Total:              job.TotalCount,
		ProgressPercentage: job.ProgressPercentage(),
		ErrorSummary:       job.ErrorSummary,
	}, nil
}

// Wait blocks until all in-flight jobs have drained. Used during
// graceful shutdown and by tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// runJob drives the full job lifecycle: running state, batched
// execution with per-batch progress persistence, then the terminal
// status derived from the final counters. The terminal status is set
// exactly once, after every item has been dispatched.
func (o *Orchestrator) runJob(ctx context.Context, job *domain.Job, items []domain.WorkItem, personas []domain.Persona) {
	log := o.logger.With("job_id", job.ID, "total_items", job.TotalCount)
	log.Info("starting job")

	o.setStatus(job, domain.JobStatusRunning)

	var itemErrors []error

	process := func(ctx context.Context, item domain.WorkItem) batch.ItemResult {
		return o.processor.ProcessItem(ctx, item, personas)
	}

	onBatch := func(ctx context.Context, result batch.BatchResult) {
		o.mu.Lock()
		job.CompletedCount += result.Succeeded
		job.FailedCount += result.Failed
		o.mu.Unlock()

		itemErrors = append(itemErrors, result.Errors...)

		if len(result.Records) > 0 && o.records != nil {
			if err := o.records.SaveRecords(ctx, result.Records); err != nil {
				log.Error("failed to save batch records",
					"batch", result.Index,
					"record_count", len(result.Records),
					"error", err)
			}
		}

		// Progress is persisted per batch, not per item, to bound
		// write volume.
		if err := o.jobs.UpdateJobProgress(ctx, job.ID, job.CompletedCount, job.FailedCount); err != nil {
			log.Error("failed to persist job progress",
				"batch", result.Index,
				"error", err)
		}
	}

	o.scheduler.Run(ctx, items, process, onBatch)

	summary := summarizeErrors(itemErrors)
	terminal := job.TerminalStatus()

	o.mu.Lock()
	job.Status = terminal
	job.ErrorSummary = summary
	now := time.Now().UTC()
	job.CompletedAt = &now
	o.retireSnapshot(job.ID)
	o.mu.Unlock()

	if err := o.jobs.CompleteJob(ctx, job.ID, terminal, summary); err != nil {
		log.Error("failed to persist terminal job status",
			"status", terminal,
			"error", err)
	}

	log.Info("job finished",
		"status", terminal,
		"completed", job.CompletedCount,
		"failed", job.FailedCount)
}

// retireSnapshot records a job as terminal and evicts the oldest
// terminal snapshots beyond the retention cap. Must be called with the
// mutex held.
func (o *Orchestrator) retireSnapshot(jobID uuid.UUID) {
	o.terminal = append(o.terminal, jobID)
	for len(o.terminal) > o.maxTerminal {
		delete(o.snapshots, o.terminal[0])
		o.terminal = o.terminal[1:]
	}
}

func (o *Orchestrator) setStatus(job *domain.Job, status domain.JobStatus) {
	o.mu.Lock()
	job.Status = status
	o.mu.Unlock()
}

// summarizeErrors renders a short human-readable summary of item
// failures. Callers see counts plus a few representative messages,
// never a stack trace.
func summarizeErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	shown := len(errs)
	if shown > maxSummaryErrors {
		shown = maxSummaryErrors
	}

	parts := make([]string, 0, shown)
	for _, err := range errs[:shown] {
		parts = append(parts, err.Error())
	}

	summary := fmt.Sprintf("%d item(s) failed: %s", len(errs), strings.Join(parts, "; "))
	if len(errs) > shown {
		summary += fmt.Sprintf(" (and %d more)", len(errs)-shown)
	}
	return summary
}
