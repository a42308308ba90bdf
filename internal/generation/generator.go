// Package generation defines the boundary between the application core
// and external LLM services, following the hexagonal architecture
// pattern. The core only ever sees a prompt-in, text-out contract plus
// the error taxonomy in errors.go.
package generation

import "context"

// TextGenerator defines the interface for submitting one prompt to an
// LLM backend and receiving its raw text completion.
//
// Implementations own retry policy for transient failures; callers can
// treat any returned error as final. Errors wrap the sentinels defined
// in this package so callers can classify outcomes with errors.Is.
type TextGenerator interface {
	// GenerateText submits the prompt and returns the raw completion
	// text. The returned text is not guaranteed to be well-formed JSON
	// or any other structure; parsing is the caller's concern.
	GenerateText(ctx context.Context, prompt string) (string, error)
}
