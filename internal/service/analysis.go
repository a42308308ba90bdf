// Package service wires the generation backend, prompt builders, and
// parser into the workload-level operations consumed by the batch
// scheduler and chunk planner.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/percept-ai/percept-api/internal/batch"
	"github.com/percept-ai/percept-api/internal/domain"
	"github.com/percept-ai/percept-api/internal/generation"
	"github.com/percept-ai/percept-api/internal/parser"
	"github.com/percept-ai/percept-api/internal/prompt"
)

// ErrUnparsableResponse is returned when a response yields zero records
// even after fragment recovery.
var ErrUnparsableResponse = errors.New("response yielded no parseable records")

// AnalysisProcessor processes one brand-perception work item: it builds
// the analysis prompt for the item's query, submits it, and parses
// brand mentions out of the raw response. It implements
// job.ItemProcessor.
type AnalysisProcessor struct {
	generator generation.TextGenerator
	logger    *slog.Logger
}

// NewAnalysisProcessor creates an AnalysisProcessor.
func NewAnalysisProcessor(generator generation.TextGenerator, logger *slog.Logger) (*AnalysisProcessor, error) {
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &AnalysisProcessor{generator: generator, logger: logger}, nil
}

// ProcessItem handles one query end to end. Failures are returned as
// the result's Err, never panics: a generation failure after retries,
// or a response that yields zero records even after fragment recovery.
// A valid-but-empty mentions array is a success with zero records.
func (p *AnalysisProcessor) ProcessItem(ctx context.Context, item domain.WorkItem, personas []domain.Persona) batch.ItemResult {
	result := batch.ItemResult{Item: item}

	text, err := prompt.ForAnalysis(item.Payload)
	if err != nil {
		result.Err = fmt.Errorf("failed to build analysis prompt: %w", err)
		return result
	}

	raw, err := p.generator.GenerateText(ctx, text)
	if err != nil {
		result.Err = fmt.Errorf("generation failed for item %s: %w", item.ID, err)
		return result
	}

	mentionParser := parser.New(personas,
		parser.WithArrayKeys("mentions", "records", "items"),
		parser.WithCategoryKeys("category", "type", "brand"),
	)

	records, issues := mentionParser.Parse(raw)
	result.Records = records
	result.Issues = issues

	if len(records) == 0 && parseFailed(issues) {
		result.Err = fmt.Errorf("item %s: %w", item.ID, ErrUnparsableResponse)
		return result
	}

	p.logger.DebugContext(ctx, "analysis item processed",
		"item_id", item.ID,
		"records", len(records),
		"issues", len(issues))

	return result
}

// parseFailed reports whether the issue list indicates the response
// could not be parsed at all, as opposed to a valid response that
// legitimately contained no records.
func parseFailed(issues []parser.Issue) bool {
	for _, issue := range issues {
		switch issue.Code {
		case parser.IssueNoPayload, parser.IssueFragmentRecovery, parser.IssueMissingArrayField:
			return true
		}
	}
	return false
}
