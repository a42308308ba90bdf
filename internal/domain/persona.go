package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Common validation errors for Persona
var (
	ErrEmptyPersonaID   = errors.New("persona ID cannot be empty")
	ErrEmptyPersonaName = errors.New("persona name cannot be empty")
)

// Persona is a domain entity that generated records are attributed to,
// such as a buyer persona or audience segment. Personas provide prompt
// context and are the targets of record back-references.
type Persona struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// NewPersona creates a Persona with a freshly generated ID.
// Returns an error if validation fails.
func NewPersona(name string) (*Persona, error) {
	persona := &Persona{
		ID:   uuid.New(),
		Name: name,
	}

	if err := persona.Validate(); err != nil {
		return nil, err
	}

	return persona, nil
}

// Validate checks if the Persona has valid data.
func (p *Persona) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPersonaID
	}

	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyPersonaName
	}

	return nil
}
