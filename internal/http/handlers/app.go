package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"storyboard-backend/internal/domain"
	"storyboard-backend/internal/infra"
	"storyboard-backend/internal/storage"
)

// JobService is the orchestrator surface the HTTP layer needs.
type JobService interface {
	SubmitImageGeneration(ctx context.Context, params domain.ImageGenerationParams) (*domain.Job, error)
	SubmitBRoll(ctx context.Context, params domain.BRollParams) (*domain.Job, error)
	Cancel(ctx context.Context, jobID string) error
}

// App bundles handler dependencies.
type App struct {
	Jobs      domain.JobRepository
	Files     domain.FileRepository
	Service   JobService
	Store     *storage.FileStore
	OutputDir string
	Logger    infra.Logger
}

func NewApp(jobs domain.JobRepository, files domain.FileRepository, svc JobService, store *storage.FileStore, outputDir string, logger infra.Logger) *App {
	return &App{
		Jobs:      jobs,
		Files:     files,
		Service:   svc,
		Store:     store,
		OutputDir: outputDir,
		Logger:    logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.json(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, domain.ErrNoClips):
		a.json(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.json(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
