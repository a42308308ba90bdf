package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/percept-ai/percept-api/internal/config"
	"github.com/percept-ai/percept-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "rate limited is transient",
			err:  genai.APIError{Code: 429, Message: "resource exhausted"},
			want: generation.ErrTransientFailure,
		},
		{
			name: "server error is transient",
			err:  genai.APIError{Code: 500, Message: "internal"},
			want: generation.ErrTransientFailure,
		},
		{
			name: "service unavailable is transient",
			err:  genai.APIError{Code: 503, Message: "unavailable"},
			want: generation.ErrTransientFailure,
		},
		{
			name: "bad request is permanent",
			err:  genai.APIError{Code: 400, Message: "invalid argument"},
			want: generation.ErrPermanentFailure,
		},
		{
			name: "not found is permanent",
			err:  genai.APIError{Code: 404, Message: "model not found"},
			want: generation.ErrPermanentFailure,
		},
		{
			name: "timeout is transient",
			err:  context.DeadlineExceeded,
			want: generation.ErrTransientFailure,
		},
		{
			name: "unknown error is assumed transient",
			err:  errors.New("connection reset by peer"),
			want: generation.ErrTransientFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyAPIError(tt.err)
			assert.ErrorIs(t, classified, tt.want)
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(classifyAPIError(genai.APIError{Code: 500})))
	assert.False(t, isTransient(classifyAPIError(genai.APIError{Code: 403})))
	assert.False(t, isTransient(generation.ErrContentBlocked))
}

func TestNewGeneratorConfigValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewGenerator(ctx, nil, config.LLMConfig{GeminiAPIKey: "key", ModelName: "model"})
	assert.Error(t, err)

	_, err = NewGenerator(ctx, setupTestLogger(), config.LLMConfig{ModelName: "model"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(ctx, setupTestLogger(), config.LLMConfig{GeminiAPIKey: "key"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestGenerateTextRejectsEmptyPrompt(t *testing.T) {
	g := &Generator{logger: setupTestLogger(), model: "test-model"}

	_, err := g.GenerateText(context.Background(), "")
	assert.ErrorIs(t, err, generation.ErrPermanentFailure)
	assert.Contains(t, err.Error(), ErrEmptyPrompt.Error())
}

// newStubbedGenerator builds a Generator whose API call and retry sleep
// are replaced by test doubles.
func newStubbedGenerator(t *testing.T, cfg config.LLMConfig, call func(ctx context.Context, prompt string) (string, error)) (*Generator, *[]time.Duration) {
	t.Helper()

	var sleeps []time.Duration
	g := &Generator{
		logger: setupTestLogger(),
		config: cfg,
		model:  "test-model",
		call:   call,
		sleep: func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		},
	}
	return g, &sleeps
}

func TestGenerateTextRetriesTransientFailures(t *testing.T) {
	attempts := 0
	call := func(ctx context.Context, prompt string) (string, error) {
		attempts++
		if attempts < 3 {
			return "", classifyAPIError(genai.APIError{Code: 503, Message: "unavailable"})
		}
		return "generated text", nil
	}

	g, sleeps := newStubbedGenerator(t, config.LLMConfig{MaxRetries: 3, RetryDelaySeconds: 2}, call)

	text, err := g.GenerateText(context.Background(), "prompt")
	assert.NoError(t, err)
	assert.Equal(t, "generated text", text)
	assert.Equal(t, 3, attempts)

	// Two failures before success means two backoff sleeps, the second
	// longer than the first.
	if assert.Len(t, *sleeps, 2) {
		assert.Greater(t, (*sleeps)[1], (*sleeps)[0]/2)
	}
}

func TestGenerateTextBackoffScalesWithMultiplier(t *testing.T) {
	call := func(ctx context.Context, prompt string) (string, error) {
		return "", classifyAPIError(genai.APIError{Code: 503, Message: "unavailable"})
	}

	cfg := config.LLMConfig{MaxRetries: 2, RetryDelaySeconds: 2, BackoffMultiplier: 5}
	g, sleeps := newStubbedGenerator(t, cfg, call)

	_, err := g.GenerateText(context.Background(), "prompt")
	assert.ErrorIs(t, err, generation.ErrTransientFailure)

	// With jitter in [0.5, 1.0) the first delay stays within the 2s
	// base, and the second is at least base x multiplier x 0.5 = 5s.
	// A multiplier of 2 could never reach 5s on the second attempt.
	require.Len(t, *sleeps, 2)
	assert.LessOrEqual(t, (*sleeps)[0], 2*time.Second)
	assert.GreaterOrEqual(t, (*sleeps)[1], 5*time.Second)
}

func TestGenerateTextDoesNotRetryPermanentFailures(t *testing.T) {
	attempts := 0
	call := func(ctx context.Context, prompt string) (string, error) {
		attempts++
		return "", classifyAPIError(genai.APIError{Code: 400, Message: "invalid argument"})
	}

	g, sleeps := newStubbedGenerator(t, config.LLMConfig{MaxRetries: 3, RetryDelaySeconds: 2}, call)

	_, err := g.GenerateText(context.Background(), "prompt")
	assert.ErrorIs(t, err, generation.ErrPermanentFailure)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, *sleeps)
}

func TestGenerateTextExhaustsRetries(t *testing.T) {
	attempts := 0
	call := func(ctx context.Context, prompt string) (string, error) {
		attempts++
		return "", classifyAPIError(genai.APIError{Code: 429, Message: "rate limited"})
	}

	g, _ := newStubbedGenerator(t, config.LLMConfig{MaxRetries: 2, RetryDelaySeconds: 2}, call)

	_, err := g.GenerateText(context.Background(), "prompt")
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
}

func TestGenerateTextContentBlockedIsPermanent(t *testing.T) {
	attempts := 0
	call := func(ctx context.Context, prompt string) (string, error) {
		attempts++
		return "", fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}

	g, _ := newStubbedGenerator(t, config.LLMConfig{MaxRetries: 3, RetryDelaySeconds: 2}, call)

	_, err := g.GenerateText(context.Background(), "prompt")
	assert.ErrorIs(t, err, generation.ErrContentBlocked)
	assert.Equal(t, 1, attempts)
}
