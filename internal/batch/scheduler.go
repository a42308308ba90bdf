// Package batch converts flat lists of LLM work into paced,
// bounded-concurrency execution: the Scheduler runs work items in
// sequential batches of adaptive size, and the Planner splits large
// multi-persona generation requests into independently retried chunks.
package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/percept-ai/percept-api/internal/domain"
	"github.com/percept-ai/percept-api/internal/parser"
	"golang.org/x/sync/errgroup"
)

// ItemResult is the outcome of processing one work item.
type ItemResult struct {
	Item    domain.WorkItem
	Records []*domain.Record
	Issues  []parser.Issue
	Err     error
}

// BatchResult aggregates one batch's outcomes. It is ephemeral,
// in-memory state handed to the caller after the batch drains.
type BatchResult struct {
	Index     int
	Succeeded int
	Failed    int
	Records   []*domain.Record
	Issues    []parser.Issue
	Errors    []error
}

// ProcessFunc handles one work item end to end (generation call plus
// parsing). A non-nil ItemResult.Err marks the item as failed; it must
// not panic.
type ProcessFunc func(ctx context.Context, item domain.WorkItem) ItemResult

// BatchFunc is invoked after each batch fully drains, before the
// inter-batch delay. The orchestrator uses it to fold results into job
// progress.
type BatchFunc func(ctx context.Context, result BatchResult)

// Scheduler partitions work items into batches, runs each batch's
// items concurrently, and paces between batches. In-flight concurrency
// is bounded to one batch's worth at a time: batch N+1 never starts
// until every item of batch N has finished.
type Scheduler struct {
	cfg    Config
	logger *slog.Logger

	// sleep is injectable so tests can run without real delays.
	sleep func(ctx context.Context, d time.Duration)
}

// NewScheduler creates a Scheduler with the given pacing policy.
func NewScheduler(cfg Config, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Run processes all items and returns the total succeeded and failed
// counts. onBatch, if non-nil, is called after each batch completes.
// One item's failure never cancels its siblings; a slow item only
// delays the start of the next batch, never its own batch-mates.
func (s *Scheduler) Run(ctx context.Context, items []domain.WorkItem, process ProcessFunc, onBatch BatchFunc) (int, int) {
	total := len(items)
	if total == 0 {
		return 0, 0
	}

	size := s.batchSize(total)
	totalBatches := (total + size - 1) / size

	s.logger.InfoContext(ctx, "starting batch run",
		"total_items", total,
		"batch_size", size,
		"total_batches", totalBatches)

	var completed, failed int

	for batchIdx := 0; batchIdx < totalBatches; batchIdx++ {
		lo := batchIdx * size
		hi := lo + size
		if hi > total {
			hi = total
		}

		result := s.runBatch(ctx, batchIdx, items[lo:hi], process)
		completed += result.Succeeded
		failed += result.Failed

		s.logger.InfoContext(ctx, "batch completed",
			"batch", batchIdx+1,
			"total_batches", totalBatches,
			"succeeded", result.Succeeded,
			"failed", result.Failed,
			"records", len(result.Records))

		if onBatch != nil {
			onBatch(ctx, result)
		}

		if batchIdx+1 < totalBatches {
			s.sleep(ctx, s.interBatchDelay(batchIdx+1, totalBatches))
		}
	}

	return completed, failed
}

// runBatch dispatches every item of the batch concurrently and waits
// for all of them. Failures are folded into the result, never
// propagated as errors, so no item can cancel its siblings.
func (s *Scheduler) runBatch(ctx context.Context, index int, items []domain.WorkItem, process ProcessFunc) BatchResult {
	results := make([]ItemResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			results[i] = process(gctx, item)
			return nil
		})
	}
	// Workers never return errors, so this only waits.
	_ = g.Wait()

	batch := BatchResult{Index: index}
	for _, r := range results {
		if r.Err != nil {
			batch.Failed++
			batch.Errors = append(batch.Errors, r.Err)
		} else {
			batch.Succeeded++
			batch.Records = append(batch.Records, r.Records...)
		}
		batch.Issues = append(batch.Issues, r.Issues...)
	}

	return batch
}

// batchSize derives the adaptive batch size for a run of total items:
// small runs go out in one batch, mid-size runs use 15, and everything
// else is capped at the configured maximum.
func (s *Scheduler) batchSize(total int) int {
	var size int
	switch {
	case total <= 10:
		size = total
	case total <= 50:
		size = 15
	default:
		size = s.cfg.MaxBatchSize
	}

	if size > s.cfg.MaxBatchSize {
		size = s.cfg.MaxBatchSize
	}
	if size < 1 {
		size = 1
	}

	return size
}

// interBatchDelay returns the pause after `dispatched` of totalBatches
// batches. Past the tail-acceleration point the delay is halved: by
// then the backend has absorbed most of the run without pushback.
func (s *Scheduler) interBatchDelay(dispatched, totalBatches int) time.Duration {
	delay := s.cfg.BaseDelay
	if float64(dispatched) > s.cfg.TailAccelerationRatio*float64(totalBatches) {
		delay /= 2
	}
	return delay
}

// sleepContext waits for the duration or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
