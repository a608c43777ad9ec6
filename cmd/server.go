package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"tmpl-backend/internal/api"
	"tmpl-backend/internal/config"
	"tmpl-backend/internal/core"
	"tmpl-backend/internal/database"
	"tmpl-backend/internal/document"
	"tmpl-backend/internal/visualize"
	"tmpl-backend/internal/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// CreateServer wires every component from the config into an http.Server.
func CreateServer(ctx context.Context, cfg config.Config) (*http.Server, error) {
	catalog, err := LoadCatalog(cfg)
	if err != nil {
		return nil, fmt.Errorf("error loading model catalog: %w", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	archive, err := CreateArchiveProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating archive storage: %w", err)
	}

	allocator, err := workspace.NewAllocator(workspace.Config{
		UploadsDir:    cfg.UploadsDir,
		Retention:     cfg.WorkspaceRetention,
		Archive:       archive,
		ArchiveBucket: cfg.ArchiveBucket,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating workspace allocator: %w", err)
	}
	if err := allocator.CleanStaging(); err != nil {
		slog.Warn("unable to clean staging directory", "error", err)
	}

	runner, err := core.NewRunner(core.RunnerConfig{
		Program:        cfg.InferenceProgram,
		Args:           cfg.InferenceArgs,
		Dir:            cfg.InferenceDir,
		ExtraPath:      cfg.InferenceExtraPath,
		MaxOutputBytes: cfg.MaxOutputBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating inference runner: %w", err)
	}

	resolver, err := visualize.NewResolver(cfg.ResultsDir, catalog)
	if err != nil {
		return nil, fmt.Errorf("error creating visualization resolver: %w", err)
	}

	var inspector document.Inspector = document.HeaderInspector{}
	if cfg.CheckPDF {
		inspector = document.NewFitzInspector()
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Location"},
		MaxAge:         300, // Cache preflight response for 5 minutes
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// No middleware.Timeout: submissions are bounded by INFERENCE_TIMEOUT.

	apiHandler := api.NewBackendService(db, core.NewValidator(catalog), inspector, allocator, runner, resolver, api.ServiceConfig{
		MaxUploadBytes:      cfg.MaxUploadBytes,
		InferenceTimeout:    cfg.InferenceTimeout,
		MaxConcurrentJobs:   cfg.MaxConcurrentJobs,
		JobQueueTimeout:     cfg.JobQueueTimeout,
		ExposeProcessErrors: cfg.ExposeProcessErrors,
		StaticDir:           cfg.StaticDir,
		SubmitRatePerSecond: cfg.SubmitRatePerSecond,
		SubmitBurst:         cfg.SubmitBurst,
	})
	apiHandler.AddRoutes(r)

	slog.Info("server configured", "uploads", allocator.Root(), "results", resolver.Root(),
		"program", cfg.InferenceProgram, "max_jobs", cfg.MaxConcurrentJobs, "retention", cfg.WorkspaceRetention)

	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// RunServer serves until SIGINT or SIGTERM, then lets running jobs finish
// for up to drain before returning.
func RunServer(server *http.Server, drain time.Duration) error {
	shutdownErr := make(chan error, 1)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()

		shutdownErr <- server.Shutdown(ctx)
	}()

	slog.Info("server started", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not listen on %s: %w", server.Addr, err)
	}

	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
