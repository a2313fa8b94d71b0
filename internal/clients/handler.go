package clients

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/cases"
	"github.com/skk/jds-backend/internal/platform/httpx"
)

// CaseSource lists the cases opened for one client.
type CaseSource interface {
	ListByClient(ctx context.Context, clientID int64) ([]cases.Case, error)
}

// Handler exposes client endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	caseSrc   CaseSource
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, caseSrc CaseSource, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		caseSrc:   caseSrc,
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers client routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireRole(authz.RoleCaseWorker, authz.RoleAdmin))
		r.Get("/", h.list)
		r.Get("/assigned", h.listAssigned)
		r.Get("/search", h.search)
		r.Get("/{id}", h.get)
		r.Get("/{id}/cases", h.listCases)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/user", h.assignUser)
		r.Delete("/{id}/user", h.removeUser)
		r.Get("/{id}/user", h.assignedUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireRole(authz.RoleAdmin))
		r.Delete("/{id}", h.delete)
	})
}

func clientIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) listAssigned(w http.ResponseWriter, r *http.Request) {
	principal := authz.PrincipalFromContext(r.Context())
	list, err := h.service.ListAssignedTo(r.Context(), principal.ID)
	if err != nil {
		h.logger.Error("list assigned clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "name query required")
		return
	}
	list, err := h.service.Search(r.Context(), name)
	if err != nil {
		h.logger.Error("search clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid client id")
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) listCases(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid client id")
		return
	}
	list, err := h.caseSrc.ListByClient(r.Context(), id)
	if err != nil {
		h.logger.Error("list client cases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authz.PrincipalFromContext(r.Context())
	c, err := h.service.Create(r.Context(), req, principal.ID)
	if err != nil {
		h.logger.Error("create client", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid client id")
		return
	}
	var req UpdateClientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid client id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) assignUser(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid client id")
		return
	}
	var req AssignUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.AssignUser(r.Context(), id, req.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) removeUser(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid client id")
		return
	}
	c, err := h.service.RemoveUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) assignedUser(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid client id")
		return
	}
	u, err := h.service.AssignedUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}
