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

// NewQuestionGenerateFunc returns the batch.GenerateFunc used by the
// chunk planner for question generation: one call covers one persona
// chunk, and the parsed questions are attributed back to those
// personas.
func NewQuestionGenerateFunc(generator generation.TextGenerator, logger *slog.Logger) (batch.GenerateFunc, error) {
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return func(ctx context.Context, personas []domain.Persona, perPersona int) ([]*domain.Record, []parser.Issue, error) {
		text, err := prompt.ForQuestions(personas, perPersona)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build question prompt: %w", err)
		}

		raw, err := generator.GenerateText(ctx, text)
		if err != nil {
			return nil, nil, fmt.Errorf("question generation failed: %w", err)
		}

		questionParser := parser.New(personas,
			parser.WithArrayKeys("questions", "records", "items"),
			parser.WithTextKeys("text", "question"),
		)

		records, issues := questionParser.Parse(raw)

		logger.DebugContext(ctx, "question chunk generated",
			"personas", len(personas),
			"per_persona", perPersona,
			"records", len(records),
			"issues", len(issues))

		return records, issues, nil
	}, nil
}
