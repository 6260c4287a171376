package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"image-editor/internal/editor"
	"image-editor/internal/http/handlers"
	"image-editor/internal/infra"
	"image-editor/internal/metrics"
	"image-editor/internal/middleware"
)

// Deps bundles what the router needs besides the handlers.
type Deps struct {
	Config   *infra.Config
	Logger   infra.Logger
	Metrics  *metrics.Metrics
	Sessions *editor.Sessions
}

func NewRouter(app *handlers.App, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(deps.Logger),
		chimw.Recoverer,
		middleware.Metrics(deps.Metrics),
		middleware.CORS(deps.Config.CORSAllowedOrigins),
		middleware.I18N(deps.Config.DefaultLocale),
	)

	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	limit := middleware.RateLimit(deps.Config.RateLimitPerMin, time.Minute)
	uploadLimit := middleware.RateLimit(deps.Config.UploadLimitPerMin, time.Minute)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(deps.Sessions, !deps.Config.IsDevelopment()))

		r.Get("/", app.Index)
		r.With(uploadLimit).Post("/upload", app.Upload)
		r.With(limit).Post("/submit", app.Submit)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/state", app.State)
			r.With(uploadLimit).Post("/image", app.SelectImage)
			r.Put("/prompt", app.SetPrompt)
			r.With(limit).Post("/submit", app.SubmitEdit)
			r.Get("/images/{kind}", app.Image)
			r.Get("/archive", app.Archive)
			r.Get("/events", app.Events)
		})
	})

	return r
}
