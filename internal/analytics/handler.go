package analytics

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/platform/httpx"
)

// Handler exposes the dashboard endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler constructs the analytics handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw}
}

// MountRoutes registers analytics endpoints onto the router. Headline
// counts are open to any signed-in user; performance, workload and client
// breakdowns need the analytics permission.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(h.authz.RequireAuthenticated())
		gr.Get("/dashboard", h.handleDashboard)
		gr.Get("/cases/by-status", h.handleCasesByStatus)
		gr.Get("/cases/by-priority", h.handleCasesByPriority)
		gr.Get("/tasks/by-status", h.handleTasksByStatus)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(h.authz.RequirePermission(authz.PermAnalyticsView))
		gr.Get("/cases/performance", h.handlePerformance)
		gr.Get("/users/workload", h.handleWorkload)
		gr.Get("/clients/stats", h.handleClientStats)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.fail(w, "dashboard stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleCasesByStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.CasesByStatus(r.Context())
	if err != nil {
		h.fail(w, "case status counts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, counts)
}

func (h *Handler) handleCasesByPriority(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.CasesByPriority(r.Context())
	if err != nil {
		h.fail(w, "case priority counts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, counts)
}

func (h *Handler) handleTasksByStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.TasksByStatus(r.Context())
	if err != nil {
		h.fail(w, "task status counts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, counts)
}

func (h *Handler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.service.Performance(r.Context())
	if err != nil {
		h.fail(w, "case performance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perf)
}

func (h *Handler) handleWorkload(w http.ResponseWriter, r *http.Request) {
	workload, err := h.service.Workload(r.Context())
	if err != nil {
		h.fail(w, "user workload", err)
		return
	}
	httpx.JSON(w, http.StatusOK, workload)
}

func (h *Handler) handleClientStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ClientStats(r.Context())
	if err != nil {
		h.fail(w, "client stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error) {
	h.logger.Error(what, slog.Any("error", err))
	httpx.RespondError(w, err)
}
