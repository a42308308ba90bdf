package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/percept-ai/percept-api/internal/api"
	"github.com/percept-ai/percept-api/internal/api/shared"
)

// setupRouter builds the HTTP route tree.
func setupRouter(generation *api.GenerationHandler, analysis *api.AnalysisHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		shared.RespondWithJSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/questions/generate", generation.GenerateQuestions)
		r.Route("/analysis/jobs", func(r chi.Router) {
			r.Post("/", analysis.StartJob)
			r.Get("/{id}", analysis.GetJobStatus)
		})
	})

	return r
}
