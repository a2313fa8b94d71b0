package activity

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/platform/httpx"
)

// Handler exposes activity log endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw}
}

// MountRoutes registers activity routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermCaseRead))
		r.Get("/case/{caseId}", h.byCase)
		r.Get("/entity/{entityType}/{entityId}", h.byEntity)
		r.Get("/user/{userId}", h.byActor)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermSystemAdmin))
		r.Get("/", h.all)
	})
}

func (h *Handler) byCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := strconv.ParseInt(chi.URLParam(r, "caseId"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case id")
		return
	}
	entries, err := h.service.ByCase(r.Context(), caseID)
	if err != nil {
		h.logger.Error("list case activities", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) byEntity(w http.ResponseWriter, r *http.Request) {
	entityID, err := strconv.ParseInt(chi.URLParam(r, "entityId"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entity id")
		return
	}
	entries, err := h.service.ByEntity(r.Context(), chi.URLParam(r, "entityType"), entityID)
	if err != nil {
		h.logger.Error("list entity activities", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) byActor(w http.ResponseWriter, r *http.Request) {
	actorID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	entries, err := h.service.ByActor(r.Context(), actorID)
	if err != nil {
		h.logger.Error("list actor activities", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) all(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.All(r.Context())
	if err != nil {
		h.logger.Error("list activities", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}
