package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/platform/httpx"
	"github.com/skk/jds-backend/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	registry       *authz.Registry
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, registry *authz.Registry, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		registry:       registry,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Authorities []string `json:"authorities"`
	CSRFToken   string   `json:"csrf_token,omitempty"`
}

func principalPayload(p *authz.Principal) loginResponse {
	roles := make([]string, 0, len(p.Roles))
	for _, role := range p.Roles {
		roles = append(roles, string(role))
	}
	return loginResponse{
		ID:          p.ID,
		Username:    p.Username,
		Email:       p.Email,
		Roles:       roles,
		Authorities: p.Authorities(),
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid username or password")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	// Rotate the session ID before binding the user so a pre-login ID,
	// however the client obtained it, never names an authenticated session.
	if err := h.sessionManager.Regenerate(r.Context(), sess); err != nil {
		h.logger.Error("rotate session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	principal := authz.BuildPrincipal(h.registry, user.ID, user.Username, user.Email, user.Roles)
	resp := principalPayload(principal)
	if token, err := h.csrfManager.EnsureToken(r.Context(), sess); err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
	} else {
		resp.CSRFToken = token
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	httpx.NoContent(w)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := authz.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	httpx.JSON(w, http.StatusOK, principalPayload(principal))
}
