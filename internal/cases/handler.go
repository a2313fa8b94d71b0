package cases

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/platform/httpx"
)

// Handler exposes case endpoints. Coarse permission gates wrap whole route
// groups; operations on one identified case additionally pass the resource
// access evaluator before the service runs.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	evaluator *authz.Evaluator
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, evaluator *authz.Evaluator, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		evaluator: evaluator,
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers case routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermCaseRead))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermCaseWrite))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireRole(authz.RoleCaseWorker, authz.RoleAdmin))
		r.Get("/status/{status}", h.listByStatus)
		r.Get("/user/{userId}", h.listByAssignedUser)
		r.Get("/participant/{userId}", h.listByParticipant)
		r.Get("/search", h.search)
		r.Get("/my-cases", h.myCases)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireRole(authz.RoleAdmin))
		r.Delete("/{id}", h.delete)
	})

	// These are gated per case by the access evaluator rather than a
	// blanket permission, so a viewer can still read and an explicitly
	// added participant can still contribute.
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Get("/{id}/participants", h.participants)
	r.Post("/{id}/participants", h.addParticipant)
	r.Delete("/{id}/participants/{userId}", h.removeParticipant)
}

// guardCase runs the per-case access check and writes the refusal when the
// principal may not touch the case. Callers stop on false.
func (h *Handler) guardCase(w http.ResponseWriter, r *http.Request, caseID int64, kind authz.AccessKind) bool {
	principal := authz.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return false
	}
	allowed, err := h.evaluator.CanAccess(r.Context(), principal, caseID, kind)
	if err != nil {
		h.logger.Error("case access check", slog.Int64("case_id", caseID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return false
	}
	if !allowed {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no access to this case")
		return false
	}
	return true
}

func caseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListCasesRequest{Limit: 50}
	if v := r.URL.Query().Get("status"); v != "" {
		req.Status = &v
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		req.Priority = &v
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list cases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cases": list, "total": total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := caseIDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case id")
		return
	}
	if !h.guardCase(w, r, id, authz.AccessRead) {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) listByStatus(w http.ResponseWriter, r *http.Request) {
	status := chi.URLParam(r, "status")
	if !CaseStatus(status).Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case status")
		return
	}
	list, _, err := h.service.List(r.Context(), ListCasesRequest{Status: &status})
	if err != nil {
		h.logger.Error("list cases by status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) listByAssignedUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := caseIDParam(r, "userId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	list, err := h.service.ListByAssignedUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list cases by assignee", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) listByParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := caseIDParam(r, "userId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	list, err := h.service.ListByParticipant(r.Context(), userID)
	if err != nil {
		h.logger.Error("list cases by participant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("title")
	if q == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "title query required")
		return
	}
	list, _, err := h.service.List(r.Context(), ListCasesRequest{Search: &q})
	if err != nil {
		h.logger.Error("search cases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) myCases(w http.ResponseWriter, r *http.Request) {
	principal := authz.PrincipalFromContext(r.Context())
	list, err := h.service.ListRelatedTo(r.Context(), principal.ID)
	if err != nil {
		h.logger.Error("list my cases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
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
		h.logger.Error("create case", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := caseIDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case id")
		return
	}
	if !h.guardCase(w, r, id, authz.AccessWrite) {
		return
	}
	var req UpdateCaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authz.PrincipalFromContext(r.Context())
	c, err := h.service.Update(r.Context(), id, req, principal.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := caseIDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case id")
		return
	}
	principal := authz.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), id, principal.ID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) participants(w http.ResponseWriter, r *http.Request) {
	id, ok := caseIDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case id")
		return
	}
	if !h.guardCase(w, r, id, authz.AccessRead) {
		return
	}
	list, err := h.service.Participants(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) addParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := caseIDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case id")
		return
	}
	if !h.guardCase(w, r, id, authz.AccessWrite) {
		return
	}
	var req AddParticipantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authz.PrincipalFromContext(r.Context())
	list, err := h.service.AddParticipant(r.Context(), id, req, principal.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) removeParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := caseIDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case id")
		return
	}
	userID, ok := caseIDParam(r, "userId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	if !h.guardCase(w, r, id, authz.AccessWrite) {
		return
	}
	principal := authz.PrincipalFromContext(r.Context())
	list, err := h.service.RemoveParticipant(r.Context(), id, userID, principal.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}
