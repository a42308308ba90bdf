package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/percept-ai/percept-api/internal/api/shared"
	"github.com/percept-ai/percept-api/internal/batch"
)

// GenerationHandler serves synchronous, non-job-tracked bulk
// generation: the chunk planner splits the request, and the merged
// result is returned in one response.
type GenerationHandler struct {
	planner  *batch.Planner
	validate *validator.Validate
}

// NewGenerationHandler creates a GenerationHandler.
func NewGenerationHandler(planner *batch.Planner) *GenerationHandler {
	return &GenerationHandler{
		planner:  planner,
		validate: validator.New(),
	}
}

// GenerateQuestions handles POST /api/v1/questions/generate.
func (h *GenerationHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	var req GenerateQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	personas, err := personasFromRequest(req.Personas)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid persona: "+err.Error())
		return
	}

	result, err := h.planner.Generate(r.Context(), personas, req.PerPersonaCount)
	if err != nil {
		if errors.Is(err, batch.ErrAllChunksFailed) {
			shared.RespondWithError(w, r, http.StatusBadGateway, "generation failed for all chunks")
			return
		}
		shared.RespondWithError(w, r, http.StatusBadGateway, "generation failed")
		return
	}

	records := make([]RecordResponse, 0, len(result.Records))
	for _, record := range result.Records {
		records = append(records, recordToDTO(record))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, GenerateQuestionsResponse{
		Records: records,
		Source:  string(result.Source),
		Issues:  result.Issues,
	})
}
