// Package main implements the entry point for the Percept API server,
// which orchestrates bulk LLM generation and brand-perception analysis
// workloads.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/percept-ai/percept-api/internal/api"
	"github.com/percept-ai/percept-api/internal/batch"
	"github.com/percept-ai/percept-api/internal/config"
	"github.com/percept-ai/percept-api/internal/job"
	"github.com/percept-ai/percept-api/internal/platform/gemini"
	"github.com/percept-ai/percept-api/internal/platform/logger"
	"github.com/percept-ai/percept-api/internal/platform/postgres"
	"github.com/percept-ai/percept-api/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// run loads configuration, wires dependencies, and serves until a
// shutdown signal arrives.
func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"model", cfg.LLM.ModelName)

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := postgres.RunMigrations(db); err != nil {
		return err
	}

	generator, err := gemini.NewGenerator(ctx, appLogger, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	batchCfg := batch.ConfigFromApp(cfg.Batch)
	scheduler := batch.NewScheduler(batchCfg, appLogger)

	generateQuestions, err := service.NewQuestionGenerateFunc(generator, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create question generator: %w", err)
	}
	planner := batch.NewPlanner(batchCfg, appLogger, generateQuestions)

	processor, err := service.NewAnalysisProcessor(generator, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create analysis processor: %w", err)
	}

	jobStore := postgres.NewPostgresJobStore(db)
	recordStore := postgres.NewPostgresRecordStore(db)

	orchestrator, err := job.NewOrchestrator(jobStore, recordStore, scheduler, processor, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	router := setupRouter(
		api.NewGenerationHandler(planner),
		api.NewAnalysisHandler(orchestrator),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		appLogger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("graceful shutdown failed", "error", err)
	}

	// Let in-flight jobs drain; they run to completion once started.
	orchestrator.Wait()

	slog.Info("server stopped")
	return nil
}
