package authz

// Registry answers which permissions each role grants. The grant table is
// fixed at construction and never mutated afterwards, so a single Registry
// may be shared across goroutines without synchronization.
type Registry struct {
	grants map[Role]map[Permission]struct{}
}

// NewRegistry builds the registry with the standard grant table.
func NewRegistry() *Registry {
	grants := map[Role][]Permission{
		RoleAdmin: {
			PermCaseRead, PermCaseWrite, PermCaseDelete,
			PermClientRead, PermClientWrite, PermClientDelete,
			PermDocumentRead, PermDocumentWrite, PermDocumentDelete, PermDocumentSign,
			PermUserRead, PermUserWrite, PermUserDelete,
			PermTaskRead, PermTaskWrite, PermTaskDelete, PermTaskAssign,
			PermNoteRead, PermNoteWrite, PermNoteDelete,
			PermAnalyticsView,
			PermSystemAdmin,
		},
		RoleCaseWorker: {
			PermCaseRead, PermCaseWrite,
			PermClientRead, PermClientWrite,
			PermDocumentRead, PermDocumentWrite,
			PermTaskRead, PermTaskWrite,
			PermNoteRead, PermNoteWrite,
		},
		RoleSupervisor: {
			PermCaseRead, PermCaseWrite, PermCaseDelete,
			PermClientRead, PermClientWrite,
			PermDocumentRead, PermDocumentWrite, PermDocumentSign,
			PermUserRead,
			PermTaskRead, PermTaskWrite, PermTaskDelete, PermTaskAssign,
			PermNoteRead, PermNoteWrite, PermNoteDelete,
			PermAnalyticsView,
		},
	}

	r := &Registry{grants: make(map[Role]map[Permission]struct{}, len(grants))}
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		r.grants[role] = set
	}
	return r
}

// PermissionsFor returns the permissions granted to a role. Unknown or
// unmapped roles grant nothing; this never fails.
func (r *Registry) PermissionsFor(role Role) []Permission {
	set, ok := r.grants[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	return perms
}

// Grants reports whether the role grants the permission.
func (r *Registry) Grants(role Role, perm Permission) bool {
	_, ok := r.grants[role][perm]
	return ok
}

// HasPermission reports whether any role in the set grants the permission.
// An empty role set grants nothing.
func (r *Registry) HasPermission(roles []Role, perm Permission) bool {
	for _, role := range roles {
		if r.Grants(role, perm) {
			return true
		}
	}
	return false
}
