package tasks

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/platform/httpx"
)

// Handler exposes task endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers task routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireRole(authz.RoleCaseWorker, authz.RoleAdmin))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/case/{caseId}", h.listByCase)
		r.Get("/user/{userId}", h.listByAssignedUser)
		r.Get("/status/{status}", h.listByStatus)
		r.Get("/overdue", h.listOverdue)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermTaskAssign))
		r.Post("/{id}/assign", h.assign)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireRole(authz.RoleAdmin))
		r.Delete("/{id}", h.delete)
	})
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list tasks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid task id")
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) listByCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := idParam(r, "caseId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case id")
		return
	}
	list, err := h.service.ListByCase(r.Context(), caseID)
	if err != nil {
		h.logger.Error("list tasks by case", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) listByAssignedUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(r, "userId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	list, err := h.service.ListByAssignedUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list tasks by assignee", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request) {
	status := TaskStatus(chi.URLParam(r, "status"))
	if !status.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid task status")
		return
	}
	list, err := h.service.ListByStatus(r.Context(), status)
	if err != nil {
		h.logger.Error("list tasks by status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) listOverdue(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListOverdue(r.Context())
	if err != nil {
		h.logger.Error("list overdue tasks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create task", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid task id")
		return
	}
	var req UpdateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid task id")
		return
	}
	var req AssignTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t, err := h.service.Assign(r.Context(), id, req.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid task id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
