package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/percept-ai/percept-api/internal/domain"
	"github.com/percept-ai/percept-api/internal/parser"
)

// Source tags how a generation result was produced.
type Source string

// Possible result sources
const (
	// SourceDirect means the request was small enough for a single call.
	SourceDirect Source = "direct"

	// SourceChunked means the request was split and every chunk produced records.
	SourceChunked Source = "chunked"

	// SourceChunkedPartial means the request was split and at least one
	// chunk failed outright; the result carries the surviving chunks.
	SourceChunkedPartial Source = "chunked_partial"
)

// ErrAllChunksFailed is returned when every chunk of a split request
// exhausted its retries with zero yield.
var ErrAllChunksFailed = errors.New("all generation chunks failed")

// PlanResult is the merged outcome of a (possibly chunked) generation
// request.
type PlanResult struct {
	Records []*domain.Record
	Source  Source
	Issues  []parser.Issue
}

// GenerateFunc produces records for one set of personas. It bundles
// prompt construction, the LLM call, and parsing; the planner only
// cares about yield.
type GenerateFunc func(ctx context.Context, personas []domain.Persona, perPersona int) ([]*domain.Record, []parser.Issue, error)

// Planner decides whether a multi-persona generation request should be
// split into smaller chunks to keep each LLM call inside a reliable
// output-size range, and merges the partial results afterwards.
type Planner struct {
	cfg      Config
	logger   *slog.Logger
	generate GenerateFunc

	sleep func(ctx context.Context, d time.Duration)
}

// NewPlanner creates a Planner around the given generate function.
func NewPlanner(cfg Config, logger *slog.Logger, generate GenerateFunc) *Planner {
	return &Planner{
		cfg:      cfg,
		logger:   logger,
		generate: generate,
		sleep:    sleepContext,
	}
}

// Generate produces perPersona records for each persona, splitting the
// request into chunks when the expected yield or persona count is too
// large for one reliable call. A below-threshold but non-empty chunk is
// still merged; only a run where every chunk fails returns an error.
func (p *Planner) Generate(ctx context.Context, personas []domain.Persona, perPersona int) (*PlanResult, error) {
	if len(personas) == 0 {
		return nil, errors.New("no personas supplied")
	}

	if !p.shouldSplit(len(personas), perPersona) {
		records, issues, err := p.generate(ctx, personas, perPersona)
		if err != nil {
			return nil, fmt.Errorf("direct generation failed: %w", err)
		}
		return &PlanResult{Records: records, Source: SourceDirect, Issues: issues}, nil
	}

	chunks := p.partition(personas)
	p.logger.InfoContext(ctx, "splitting generation request",
		"personas", len(personas),
		"per_persona", perPersona,
		"chunks", len(chunks))

	result := &PlanResult{Source: SourceChunked}
	failedChunks := 0

	for i, chunk := range chunks {
		records, issues, ok := p.runChunk(ctx, i, chunk, perPersona)
		result.Issues = append(result.Issues, issues...)

		if !ok || len(records) == 0 {
			failedChunks++
			continue
		}
		result.Records = append(result.Records, records...)
	}

	if failedChunks == len(chunks) {
		return nil, fmt.Errorf("%w: %d chunks", ErrAllChunksFailed, len(chunks))
	}

	if failedChunks > 0 {
		result.Source = SourceChunkedPartial
	}

	return result, nil
}

// shouldSplit applies the split decision rule.
func (p *Planner) shouldSplit(personaCount, perPersona int) bool {
	expectedYield := personaCount * perPersona
	return expectedYield >= p.cfg.SplitYield || personaCount >= p.cfg.SplitPersonaCount
}

// partition slices the persona list into fixed-size chunks.
func (p *Planner) partition(personas []domain.Persona) [][]domain.Persona {
	size := p.cfg.ChunkSize
	if size < 1 {
		size = 1
	}

	var chunks [][]domain.Persona
	for lo := 0; lo < len(personas); lo += size {
		hi := lo + size
		if hi > len(personas) {
			hi = len(personas)
		}
		chunks = append(chunks, personas[lo:hi])
	}
	return chunks
}

// runChunk generates records for one chunk, retrying while the yield
// stays below the acceptance threshold. The final allowed attempt
// accepts whatever was obtained rather than discarding it: a
// below-threshold but non-empty result is still worth merging.
func (p *Planner) runChunk(ctx context.Context, index int, chunk []domain.Persona, perPersona int) ([]*domain.Record, []parser.Issue, bool) {
	expected := len(chunk) * perPersona
	threshold := int(math.Ceil(p.cfg.ChunkYieldThreshold * float64(expected)))
	attempts := p.cfg.ChunkRetries + 1

	var (
		lastRecords []*domain.Record
		allIssues   []parser.Issue
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		records, issues, err := p.generate(ctx, chunk, perPersona)
		allIssues = append(allIssues, issues...)

		if err != nil {
			p.logger.WarnContext(ctx, "chunk generation failed",
				"chunk", index,
				"attempt", attempt,
				"error", err)
			records = nil
		}

		lastRecords = records

		if len(records) >= threshold && len(records) > 0 {
			return records, allIssues, true
		}

		p.logger.WarnContext(ctx, "chunk yield below threshold",
			"chunk", index,
			"attempt", attempt,
			"yield", len(records),
			"expected", expected,
			"threshold", threshold)

		if attempt < attempts {
			backoff := time.Duration(float64(p.cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
			p.sleep(ctx, backoff)
		}
	}

	// Retries exhausted: keep a non-empty final yield, drop the chunk
	// only when it produced nothing at all.
	if len(lastRecords) > 0 {
		return lastRecords, allIssues, true
	}
	return nil, allIssues, false
}
