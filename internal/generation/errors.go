package generation

import "errors"

// Common errors returned by TextGenerator implementations
var (
	// ErrGenerationFailed is returned when generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate text")

	// ErrInvalidResponse is returned when the LLM response is empty or malformed
	// at the transport level (no candidates, empty content)
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors (timeouts, connection
	// failures, 429/5xx) once the retry budget is exhausted
	ErrTransientFailure = errors.New("transient error during text generation")

	// ErrPermanentFailure is returned for errors that will not resolve on retry
	// (4xx rejections, malformed requests)
	ErrPermanentFailure = errors.New("permanent error during text generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
