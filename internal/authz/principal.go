package authz

import (
	"context"
	"sort"
)

// RolePrefix namespaces role markers in the rendered authority set so they
// stay distinguishable from permission markers. Only the session/token edge
// deals in rendered markers; the decision path carries typed values.
const RolePrefix = "ROLE_"

// Principal is the runtime identity of an authenticated caller: who they
// are, the roles they hold, and the effective permissions derived from
// those roles. It is built per request and never persisted.
type Principal struct {
	ID       int64
	Username string
	Email    string
	Roles    []Role

	permissions map[Permission]struct{}
}

// BuildPrincipal materializes a principal from stored role assignments.
// The permission union is recomputed on every call so role mutations take
// effect on the next authentication, never through a stale cache.
func BuildPrincipal(registry *Registry, id int64, username, email string, roles []Role) *Principal {
	held := make([]Role, 0, len(roles))
	seen := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		held = append(held, r)
	}

	perms := make(map[Permission]struct{})
	for _, r := range held {
		for _, p := range registry.PermissionsFor(r) {
			perms[p] = struct{}{}
		}
	}

	return &Principal{
		ID:          id,
		Username:    username,
		Email:       email,
		Roles:       held,
		permissions: perms,
	}
}

// HasRole reports whether the principal holds the role.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the principal's effective permission set
// contains the permission.
func (p *Principal) HasPermission(perm Permission) bool {
	if p == nil {
		return false
	}
	_, ok := p.permissions[perm]
	return ok
}

// Permissions returns the effective permission set in sorted order.
func (p *Principal) Permissions() []Permission {
	if p == nil {
		return nil
	}
	perms := make([]Permission, 0, len(p.permissions))
	for perm := range p.permissions {
		perms = append(perms, perm)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// Authorities renders the marker set consumed by the session layer: one
// ROLE_-prefixed marker per held role plus one marker per effective
// permission. Duplicates collapse; a principal with no roles gets none.
func (p *Principal) Authorities() []string {
	if p == nil {
		return nil
	}
	markers := make([]string, 0, len(p.Roles)+len(p.permissions))
	for _, r := range p.Roles {
		markers = append(markers, RolePrefix+string(r))
	}
	for _, perm := range p.Permissions() {
		markers = append(markers, string(perm))
	}
	return markers
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in the context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal, or nil when the request is
// unauthenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
