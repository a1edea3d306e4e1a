package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storyboard-backend/internal/http/handlers"
	"storyboard-backend/internal/infra"
	"storyboard-backend/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(app.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload/{kind}", app.Upload)

		r.Group(func(r chi.Router) {
			// Generation endpoints fan out to paid external tools.
			r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
			r.Post("/generate/ai-images", app.GenerateImages)
			r.Post("/generate/broll", app.GenerateBRoll)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", app.ListJobs)
			r.Get("/{id}", app.GetJob)
			r.Delete("/{id}", app.CancelJob)
			r.Get("/{id}/bundle", app.DownloadBundle)
			r.Get("/{id}/result", app.DownloadResult)
		})

		r.Get("/download/{job_id}/{filename}", app.DownloadArtifact)
	})

	return r
}
