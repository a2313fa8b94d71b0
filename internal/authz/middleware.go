package authz

import (
	"log/slog"
	"net/http"
)

// Middleware wires the coarse permission gate into HTTP handlers. The fine
// per-case gate stays with the handlers that know their case ID.
type Middleware struct {
	Logger *slog.Logger
}

// RequirePermission allows the request through when the authenticated
// principal holds at least one of the listed permissions.
func (m Middleware) RequirePermission(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			for _, p := range perms {
				if principal.HasPermission(p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Logger != nil {
				m.Logger.Warn("permission denied",
					slog.Int64("user_id", principal.ID),
					slog.String("path", r.URL.Path))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAuthenticated allows any request carrying a resolved principal.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()) == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole allows the request through when the principal holds at least
// one of the listed roles.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if principal.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Logger != nil {
				m.Logger.Warn("role denied",
					slog.Int64("user_id", principal.ID),
					slog.String("path", r.URL.Path))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}
