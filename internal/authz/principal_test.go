package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPrincipalAuthorities(t *testing.T) {
	registry := NewRegistry()
	p := BuildPrincipal(registry, 7, "worker", "worker@jds.local", []Role{RoleCaseWorker})

	markers := p.Authorities()
	require.Contains(t, markers, "ROLE_CASE_WORKER")
	require.Contains(t, markers, "CASE_READ")
	require.Contains(t, markers, "CASE_WRITE")
	require.NotContains(t, markers, "CASE_DELETE")
	require.Len(t, markers, 11) // 1 role marker + 10 permission markers

	require.True(t, p.HasRole(RoleCaseWorker))
	require.False(t, p.HasRole(RoleAdmin))
	require.True(t, p.HasPermission(PermNoteWrite))
	require.False(t, p.HasPermission(PermSystemAdmin))
}

func TestBuildPrincipalCollapsesDuplicates(t *testing.T) {
	registry := NewRegistry()
	p := BuildPrincipal(registry, 7, "worker", "worker@jds.local",
		[]Role{RoleCaseWorker, RoleCaseWorker, RoleSupervisor})

	require.Equal(t, []Role{RoleCaseWorker, RoleSupervisor}, p.Roles)

	seen := make(map[string]int)
	for _, m := range p.Authorities() {
		seen[m]++
	}
	for marker, n := range seen {
		require.Equalf(t, 1, n, "marker %s appeared %d times", marker, n)
	}
}

func TestBuildPrincipalNoRoles(t *testing.T) {
	registry := NewRegistry()
	p := BuildPrincipal(registry, 3, "ghost", "ghost@jds.local", nil)

	require.Empty(t, p.Authorities())
	require.Empty(t, p.Permissions())
	require.False(t, p.HasPermission(PermCaseRead))
}

func TestAddingRoleIsMonotonic(t *testing.T) {
	registry := NewRegistry()
	before := BuildPrincipal(registry, 5, "u", "u@jds.local", []Role{RoleCaseWorker})
	after := BuildPrincipal(registry, 5, "u", "u@jds.local", []Role{RoleCaseWorker, RoleSupervisor})

	got := make(map[string]struct{})
	for _, m := range after.Authorities() {
		got[m] = struct{}{}
	}
	for _, m := range before.Authorities() {
		require.Contains(t, got, m)
	}
}

func TestViewerAuthoritiesAreRoleMarkerOnly(t *testing.T) {
	registry := NewRegistry()
	p := BuildPrincipal(registry, 9, "viewer", "viewer@jds.local", []Role{RoleViewer})

	require.Equal(t, []string{"ROLE_VIEWER"}, p.Authorities())
}

func TestNilPrincipalIsInert(t *testing.T) {
	var p *Principal
	require.False(t, p.HasRole(RoleAdmin))
	require.False(t, p.HasPermission(PermCaseRead))
	require.Nil(t, p.Authorities())
}
