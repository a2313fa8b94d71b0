package notes

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/platform/httpx"
)

// Handler exposes note endpoints.
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

// MountRoutes registers note routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireRole(authz.RoleCaseWorker, authz.RoleAdmin))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/case/{caseId}", h.listByCase)
		r.Get("/author/{authorId}", h.listByAuthor)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
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
		h.logger.Error("list notes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid note id")
		return
	}
	n, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) listByCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := idParam(r, "caseId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case id")
		return
	}
	list, err := h.service.ListByCase(r.Context(), caseID)
	if err != nil {
		h.logger.Error("list notes by case", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) listByAuthor(w http.ResponseWriter, r *http.Request) {
	authorID, ok := idParam(r, "authorId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid author id")
		return
	}
	list, err := h.service.ListByAuthor(r.Context(), authorID)
	if err != nil {
		h.logger.Error("list notes by author", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authz.PrincipalFromContext(r.Context())
	n, err := h.service.Create(r.Context(), req, principal.ID)
	if err != nil {
		h.logger.Error("create note", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, n)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid note id")
		return
	}
	var req UpdateNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authz.PrincipalFromContext(r.Context())
	n, err := h.service.Update(r.Context(), id, req, principal.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid note id")
		return
	}
	principal := authz.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), id, principal.ID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
