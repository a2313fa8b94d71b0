package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func permSet(perms []Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func TestAdminHasFullGrantSet(t *testing.T) {
	registry := NewRegistry()
	perms := permSet(registry.PermissionsFor(RoleAdmin))

	require.Len(t, perms, 22)
	require.Contains(t, perms, PermCaseRead)
	require.Contains(t, perms, PermCaseDelete)
	require.Contains(t, perms, PermClientDelete)
	require.Contains(t, perms, PermDocumentSign)
	require.Contains(t, perms, PermUserDelete)
	require.Contains(t, perms, PermTaskAssign)
	require.Contains(t, perms, PermNoteDelete)
	require.Contains(t, perms, PermAnalyticsView)
	require.Contains(t, perms, PermSystemAdmin)
}

func TestCaseWorkerGrantSet(t *testing.T) {
	registry := NewRegistry()
	perms := permSet(registry.PermissionsFor(RoleCaseWorker))

	require.Len(t, perms, 10)
	for _, p := range []Permission{
		PermCaseRead, PermCaseWrite,
		PermClientRead, PermClientWrite,
		PermDocumentRead, PermDocumentWrite,
		PermTaskRead, PermTaskWrite,
		PermNoteRead, PermNoteWrite,
	} {
		require.Contains(t, perms, p)
	}

	// No deletes, no sign, no analytics, no user management.
	require.NotContains(t, perms, PermCaseDelete)
	require.NotContains(t, perms, PermDocumentSign)
	require.NotContains(t, perms, PermAnalyticsView)
	require.NotContains(t, perms, PermUserRead)
	require.NotContains(t, perms, PermSystemAdmin)
}

func TestSupervisorGrantSet(t *testing.T) {
	registry := NewRegistry()
	perms := permSet(registry.PermissionsFor(RoleSupervisor))

	require.Len(t, perms, 17)
	require.Contains(t, perms, PermCaseDelete)
	require.Contains(t, perms, PermDocumentSign)
	require.Contains(t, perms, PermUserRead)
	require.Contains(t, perms, PermTaskAssign)
	require.Contains(t, perms, PermTaskDelete)
	require.Contains(t, perms, PermNoteDelete)
	require.Contains(t, perms, PermAnalyticsView)

	require.NotContains(t, perms, PermClientDelete)
	require.NotContains(t, perms, PermUserWrite)
	require.NotContains(t, perms, PermUserDelete)
	require.NotContains(t, perms, PermDocumentDelete)
	require.NotContains(t, perms, PermSystemAdmin)
}

func TestSupervisorIsSupersetOfCaseWorker(t *testing.T) {
	registry := NewRegistry()
	supervisor := permSet(registry.PermissionsFor(RoleSupervisor))
	for _, p := range registry.PermissionsFor(RoleCaseWorker) {
		require.Contains(t, supervisor, p)
	}
}

func TestUnknownRoleGrantsNothing(t *testing.T) {
	registry := NewRegistry()
	require.Empty(t, registry.PermissionsFor(RoleViewer))
	require.Empty(t, registry.PermissionsFor(Role("GHOST")))
	require.Empty(t, registry.PermissionsFor(Role("")))
}

func TestHasPermissionUnionSemantics(t *testing.T) {
	registry := NewRegistry()

	require.False(t, registry.HasPermission(nil, PermCaseRead))
	require.False(t, registry.HasPermission([]Role{}, PermCaseRead))

	require.True(t, registry.HasPermission([]Role{RoleCaseWorker}, PermCaseWrite))
	require.False(t, registry.HasPermission([]Role{RoleCaseWorker}, PermCaseDelete))

	// Union across held roles: either role granting suffices.
	require.True(t, registry.HasPermission([]Role{RoleCaseWorker, RoleSupervisor}, PermCaseDelete))
	require.True(t, registry.HasPermission([]Role{RoleViewer, RoleAdmin}, PermSystemAdmin))
	require.False(t, registry.HasPermission([]Role{RoleViewer, RoleCaseWorker}, PermSystemAdmin))
}

func TestPermissionsForIsDeterministic(t *testing.T) {
	registry := NewRegistry()
	first := permSet(registry.PermissionsFor(RoleSupervisor))
	for i := 0; i < 10; i++ {
		require.Equal(t, first, permSet(registry.PermissionsFor(RoleSupervisor)))
	}
}
