// Package api contains the HTTP handlers exposing the orchestration
// core. Routing, auth, and middleware concerns stay in cmd/server.
package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/percept-ai/percept-api/internal/domain"
	"github.com/percept-ai/percept-api/internal/parser"
)

// PersonaRequest identifies one persona in a request body. The ID is
// optional; personas without one get a locally generated ID.
type PersonaRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name" validate:"required"`
}

// GenerateQuestionsRequest is the request body for synchronous
// question generation.
type GenerateQuestionsRequest struct {
	Personas        []PersonaRequest `json:"personas" validate:"required,min=1,dive"`
	PerPersonaCount int              `json:"per_persona_count" validate:"required,gt=0,lte=50"`
}

// GenerateQuestionsResponse carries the merged generation result.
type GenerateQuestionsResponse struct {
	Records []RecordResponse `json:"records"`
	Source  string           `json:"source"`
	Issues  []parser.Issue   `json:"issues,omitempty"`
}

// StartAnalysisJobRequest is the request body for starting a
// brand-perception analysis job.
type StartAnalysisJobRequest struct {
	Queries  []string         `json:"queries" validate:"required,min=1,dive,required"`
	Personas []PersonaRequest `json:"personas" validate:"omitempty,dive"`
}

// StartAnalysisJobResponse acknowledges an accepted job.
type StartAnalysisJobResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

// JobStatusResponse is the polled job progress snapshot.
type JobStatusResponse struct {
	JobID              uuid.UUID `json:"job_id"`
	Status             string    `json:"status"`
	Completed          int       `json:"completed"`
	Failed             int       `json:"failed"`
	Total              int       `json:"total"`
	ProgressPercentage float64   `json:"progress_percentage"`
	ErrorSummary       string    `json:"error_summary,omitempty"`
}

// RecordResponse is the wire shape of one generated record.
type RecordResponse struct {
	ID         uuid.UUID         `json:"id"`
	Text       string            `json:"text"`
	PersonaID  uuid.UUID         `json:"persona_id,omitempty"`
	Category   string            `json:"category,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// recordToDTO maps a domain record to its response shape.
func recordToDTO(record *domain.Record) RecordResponse {
	return RecordResponse{
		ID:         record.ID,
		Text:       record.Text,
		PersonaID:  record.PersonaID,
		Category:   record.Category,
		Attributes: record.Attributes,
		CreatedAt:  record.CreatedAt,
	}
}

// personasFromRequest converts request personas to domain personas,
// generating IDs where the caller did not supply one.
func personasFromRequest(reqs []PersonaRequest) ([]domain.Persona, error) {
	personas := make([]domain.Persona, 0, len(reqs))
	for _, req := range reqs {
		persona := domain.Persona{Name: req.Name}
		if req.ID != "" {
			id, err := uuid.Parse(req.ID)
			if err != nil {
				return nil, err
			}
			persona.ID = id
		} else {
			persona.ID = uuid.New()
		}

		if err := persona.Validate(); err != nil {
			return nil, err
		}
		personas = append(personas, persona)
	}
	return personas, nil
}
