// Package gemini implements the generation.TextGenerator interface
// using Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/percept-ai/percept-api/internal/config"
	"github.com/percept-ai/percept-api/internal/generation"
	"google.golang.org/genai"
)

// Generator submits prompts to the Gemini API with bounded
// exponential-backoff retry for transient failures. It satisfies
// generation.TextGenerator.
type Generator struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
	model  string

	// call performs one API attempt. Tests swap it out; production
	// always uses callOnce.
	call func(ctx context.Context, prompt string) (string, error)

	// sleep waits between retry attempts, injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGenerator creates a Generator with the provided dependencies.
//
// Returns a properly initialized Generator or an error if the
// configuration is invalid or the client cannot be constructed.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	g := &Generator{
		logger: logger,
		config: cfg,
		client: client,
		model:  cfg.ModelName,
	}
	g.call = g.callOnce
	g.sleep = sleepContext

	return g, nil
}

// sleepContext waits for the duration or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GenerateText submits the prompt to the Gemini API, retrying transient
// failures with exponential backoff and jitter. Permanent failures
// (4xx rejections, safety blocks, unusable responses) are returned
// immediately. The returned error always wraps one of the generation
// package sentinels; nothing panics across this boundary.
func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: %v", generation.ErrPermanentFailure, ErrEmptyPrompt)
	}

	maxRetries := g.config.MaxRetries
	baseDelaySeconds := g.config.RetryDelaySeconds
	multiplier := g.config.BackoffMultiplier
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Guard against misconfiguration rather than failing the call.
	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}

	if baseDelaySeconds < 1 {
		g.logger.WarnContext(ctx, "invalid retry delay value, using default", "base_delay_seconds", 2)
		baseDelaySeconds = 2
	}

	if multiplier < 1 {
		g.logger.WarnContext(ctx, "invalid backoff multiplier value, using default", "backoff_multiplier", 2)
		multiplier = 2
	}

	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptNum := attempt + 1
		g.logger.DebugContext(ctx, "making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1,
			"prompt_length", len(prompt))

		text, err := g.call(ctx, prompt)
		if err == nil {
			g.logger.DebugContext(ctx, "Gemini API call successful",
				"attempt", attemptNum,
				"response_length", len(text))
			return text, nil
		}

		lastErr = err
		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		if !isTransient(err) {
			g.logger.WarnContext(ctx, "permanent error occurred, not retrying", "error", err)
			return "", err
		}

		if attempt >= maxRetries {
			break
		}

		// delay = baseDelay * multiplier^attempt * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(multiplier, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		g.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attemptNum,
			"delay_seconds", delay.Seconds())

		if err := g.sleep(ctx, delay); err != nil {
			g.logger.WarnContext(ctx, "API call cancelled during retry delay",
				"attempt", attemptNum,
				"ctx_err", err)
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
	}

	return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
		generation.ErrTransientFailure, maxRetries, lastErr)
}

// callOnce performs a single API call under the configured per-call
// timeout and normalizes the outcome to text-or-error.
func (g *Generator) callOnce(ctx context.Context, prompt string) (string, error) {
	if g.config.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(g.config.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyAPIError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}

	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: response contains no text parts", generation.ErrInvalidResponse)
	}

	return text, nil
}

// classifyAPIError maps a transport error to the generation error
// taxonomy. Rate limiting and server-side failures are transient;
// client-side rejections are permanent. Unknown errors are assumed
// transient, matching the backend's observed failure modes.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		case apiErr.Code >= 400:
			return fmt.Errorf("%w: %v", generation.ErrPermanentFailure, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out: %v", generation.ErrTransientFailure, err)
	}

	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}

// isTransient reports whether the classified error may resolve on retry.
func isTransient(err error) bool {
	return errors.Is(err, generation.ErrTransientFailure)
}
