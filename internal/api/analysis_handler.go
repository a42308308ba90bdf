package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/percept-ai/percept-api/internal/api/shared"
	"github.com/percept-ai/percept-api/internal/domain"
	"github.com/percept-ai/percept-api/internal/job"
)

// AnalysisHandler serves brand-perception analysis jobs: starting a
// job over a list of queries and polling its progress.
type AnalysisHandler struct {
	orchestrator *job.Orchestrator
	validate     *validator.Validate
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(orchestrator *job.Orchestrator) *AnalysisHandler {
	return &AnalysisHandler{
		orchestrator: orchestrator,
		validate:     validator.New(),
	}
}

// StartJob handles POST /api/v1/analysis/jobs. It returns 202 with the
// job ID immediately; processing proceeds asynchronously.
func (h *AnalysisHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	var req StartAnalysisJobRequest
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

	items := make([]domain.WorkItem, 0, len(req.Queries))
	for _, query := range req.Queries {
		item, err := domain.NewWorkItem(uuid.Nil, query)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "invalid query: "+err.Error())
			return
		}
		items = append(items, *item)
	}

	jobID, err := h.orchestrator.StartJob(r.Context(), items, personas)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "failed to start job")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, StartAnalysisJobResponse{JobID: jobID})
}

// GetJobStatus handles GET /api/v1/analysis/jobs/{id}.
func (h *AnalysisHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid job ID")
		return
	}

	status, err := h.orchestrator.GetJobStatus(jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "job not found")
			return
		}
		shared.RespondWithError(w, r, http.StatusInternalServerError, "failed to get job status")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, JobStatusResponse{
		JobID:              status.JobID,
		Status:             string(status.Status),
		Completed:          status.Completed,
		Failed:             status.Failed,
		Total:              status.Total,
		ProgressPercentage: status.ProgressPercentage,
		ErrorSummary:       status.ErrorSummary,
	})
}
