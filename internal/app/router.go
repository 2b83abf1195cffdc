package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classpulse/classpulse/internal/analytics"
	"github.com/classpulse/classpulse/internal/auth"
	"github.com/classpulse/classpulse/internal/authz"
	"github.com/classpulse/classpulse/internal/observability"
	"github.com/classpulse/classpulse/internal/progress"
	"github.com/classpulse/classpulse/internal/schools"
	"github.com/classpulse/classpulse/internal/shared"
	"github.com/classpulse/classpulse/internal/students"
	"github.com/classpulse/classpulse/internal/teachers"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	SchoolsHandler   *schools.Handler
	TeachersHandler  *teachers.Handler
	StudentsHandler  *students.Handler
	ProgressHandler  *progress.Handler
	AnalyticsHandler *analytics.Handler
	Principal        authz.Middleware
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with ClassPulse defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Every data route requires a resolved principal.
	r.Group(func(r chi.Router) {
		r.Use(params.Principal.RequirePrincipal)
		r.Route("/schools", params.SchoolsHandler.MountRoutes)
		r.Route("/teachers", params.TeachersHandler.MountRoutes)
		r.Route("/students", params.StudentsHandler.MountRoutes)
		r.Route("/progress", params.ProgressHandler.MountRoutes)
		if params.AnalyticsHandler != nil {
			r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
