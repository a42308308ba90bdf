package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Common validation errors for WorkItem
var (
	ErrEmptyWorkItemID      = errors.New("work item ID cannot be empty")
	ErrEmptyWorkItemPayload = errors.New("work item payload cannot be empty")
)

// WorkItem is one unit of work submitted to the LLM backend: a query to
// analyze, or a generation request for one persona. Work items are
// immutable once enqueued and may be read freely by concurrent workers.
type WorkItem struct {
	ID        uuid.UUID `json:"id"`
	PersonaID uuid.UUID `json:"persona_id"`
	Payload   string    `json:"payload"`
}

// NewWorkItem creates a WorkItem with a freshly generated ID. The
// persona ID may be uuid.Nil for workloads that are not persona-scoped.
// Returns an error if validation fails.
func NewWorkItem(personaID uuid.UUID, payload string) (*WorkItem, error) {
	item := &WorkItem{
		ID:        uuid.New(),
		PersonaID: personaID,
		Payload:   payload,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the WorkItem has valid data.
func (w *WorkItem) Validate() error {
	if w.ID == uuid.Nil {
		return ErrEmptyWorkItemID
	}

	if strings.TrimSpace(w.Payload) == "" {
		return ErrEmptyWorkItemPayload
	}

	return nil
}
