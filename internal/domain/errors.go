// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidJobStatus is returned when a job status is not valid.
	ErrInvalidJobStatus = errors.New("invalid job status")

	// ErrJobNotFound is returned when a job lookup misses.
	ErrJobNotFound = errors.New("job not found")
)
