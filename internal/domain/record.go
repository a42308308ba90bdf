package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Record
var (
	ErrEmptyRecordID   = errors.New("record ID cannot be empty")
	ErrEmptyRecordText = errors.New("record text cannot be empty")
)

// Record is one validated structured unit produced by parsing an LLM
// response: a generated question, a topic, or a brand mention. IDs are
// always assigned locally, never trusted from the model. Records are
// immutable after construction; ownership passes to the repository for
// persistence.
type Record struct {
	ID         uuid.UUID         `json:"id"`
	Text       string            `json:"text"`
	PersonaID  uuid.UUID         `json:"persona_id"`
	Category   string            `json:"category,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewRecord creates a Record with a freshly generated ID and creation
// timestamp. Returns an error if validation fails.
func NewRecord(text string, personaID uuid.UUID, category string, attributes map[string]string) (*Record, error) {
	record := &Record{
		ID:         uuid.New(),
		Text:       text,
		PersonaID:  personaID,
		Category:   category,
		Attributes: attributes,
		CreatedAt:  time.Now().UTC(),
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Validate checks if the Record has valid data.
func (r *Record) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRecordID
	}

	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyRecordText
	}

	return nil
}
