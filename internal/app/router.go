package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/skk/jds-backend/internal/activity"
	"github.com/skk/jds-backend/internal/analytics"
	"github.com/skk/jds-backend/internal/auth"
	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/cases"
	"github.com/skk/jds-backend/internal/clients"
	"github.com/skk/jds-backend/internal/documents"
	"github.com/skk/jds-backend/internal/notes"
	"github.com/skk/jds-backend/internal/observability"
	"github.com/skk/jds-backend/internal/shared"
	"github.com/skk/jds-backend/internal/tasks"
	"github.com/skk/jds-backend/internal/users"
	"github.com/skk/jds-backend/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Registry       *authz.Registry
	UserSource     UserSource

	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	ClientsHandler   *clients.Handler
	CasesHandler     *cases.Handler
	TasksHandler     *tasks.Handler
	NotesHandler     *notes.Handler
	DocumentsHandler *documents.Handler
	ActivityHandler  *activity.Handler
	AnalyticsHandler *analytics.Handler
	JobsHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
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

	r.Use(chimw.Logger)
	r.Use(PrincipalMiddleware(params.Logger, params.Registry, params.UserSource))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/api/users", params.UsersHandler.MountRoutes)
	r.Route("/api/clients", params.ClientsHandler.MountRoutes)
	r.Route("/api/cases", params.CasesHandler.MountRoutes)
	r.Route("/api/tasks", params.TasksHandler.MountRoutes)
	r.Route("/api/notes", params.NotesHandler.MountRoutes)
	r.Route("/api/documents", params.DocumentsHandler.MountRoutes)
	r.Route("/api/activities", params.ActivityHandler.MountRoutes)
	r.Route("/api/analytics", params.AnalyticsHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/api/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
