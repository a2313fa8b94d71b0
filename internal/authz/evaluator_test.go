package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skk/jds-backend/internal/shared"
)

type stubUserDirectory struct {
	roles map[int64][]Role
	err   error
}

func (d *stubUserDirectory) RolesOf(ctx context.Context, userID int64) ([]Role, error) {
	if d.err != nil {
		return nil, d.err
	}
	roles, ok := d.roles[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return roles, nil
}

type stubCaseDirectory struct {
	cases map[int64]CaseAccess
	err   error
}

func (d *stubCaseDirectory) AccessContext(ctx context.Context, caseID int64) (CaseAccess, error) {
	if d.err != nil {
		return CaseAccess{}, d.err
	}
	access, ok := d.cases[caseID]
	if !ok {
		return CaseAccess{}, shared.ErrNotFound
	}
	return access, nil
}

func ptr(v int64) *int64 { return &v }

func principalFor(id int64) *Principal {
	return BuildPrincipal(NewRegistry(), id, "user", "user@jds.local", nil)
}

func TestCanAccessUnauthenticatedDenied(t *testing.T) {
	eval := NewEvaluator(&stubUserDirectory{}, &stubCaseDirectory{})
	ok, err := eval.CanAccess(context.Background(), nil, 1, AccessRead)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanAccessMissingUserDenied(t *testing.T) {
	eval := NewEvaluator(&stubUserDirectory{roles: map[int64][]Role{}}, &stubCaseDirectory{})
	ok, err := eval.CanAccess(context.Background(), principalFor(42), 1, AccessRead)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanAccessSupervisorOverride(t *testing.T) {
	users := &stubUserDirectory{roles: map[int64][]Role{10: {RoleSupervisor}}}
	cases := &stubCaseDirectory{cases: map[int64]CaseAccess{
		1: {CreatedBy: ptr(99), AssignedTo: ptr(98)},
	}}
	eval := NewEvaluator(users, cases)

	// No other relation to the case, write access, still allowed.
	ok, err := eval.CanAccess(context.Background(), principalFor(10), 1, AccessWrite)
	require.NoError(t, err)
	require.True(t, ok)

	// Case does not even need to exist.
	ok, err = eval.CanAccess(context.Background(), principalFor(10), 404, AccessWrite)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCanAccessViewerReadOnlyOverride(t *testing.T) {
	users := &stubUserDirectory{roles: map[int64][]Role{20: {RoleViewer}}}
	eval := NewEvaluator(users, &stubCaseDirectory{})

	ok, err := eval.CanAccess(context.Background(), principalFor(20), 1, AccessRead)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = eval.CanAccess(context.Background(), principalFor(20), 1, AccessWrite)
	require.NoError(t, err)
	require.False(t, ok)

	// Read is allowed regardless of whether the case resolves.
	ok, err = eval.CanAccess(context.Background(), principalFor(20), 404, AccessRead)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCanAccessMissingCaseAllowed(t *testing.T) {
	users := &stubUserDirectory{roles: map[int64][]Role{30: {RoleCaseWorker}}}
	eval := NewEvaluator(users, &stubCaseDirectory{cases: map[int64]CaseAccess{}})

	// Deliberate policy: a missing case is not an access problem. The fetch
	// path answers 404 instead of this check masking it as 403.
	for _, kind := range []AccessKind{AccessRead, AccessWrite} {
		ok, err := eval.CanAccess(context.Background(), principalFor(30), 404, kind)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestCanAccessCreatorAndAssignee(t *testing.T) {
	users := &stubUserDirectory{roles: map[int64][]Role{
		30: {RoleCaseWorker},
		31: {RoleCaseWorker},
	}}
	cases := &stubCaseDirectory{cases: map[int64]CaseAccess{
		1: {CreatedBy: ptr(30), AssignedTo: ptr(31)},
	}}
	eval := NewEvaluator(users, cases)

	for _, userID := range []int64{30, 31} {
		for _, kind := range []AccessKind{AccessRead, AccessWrite} {
			ok, err := eval.CanAccess(context.Background(), principalFor(userID), 1, kind)
			require.NoError(t, err)
			require.Truef(t, ok, "user %d kind %s", userID, kind)
		}
	}
}

func TestCanAccessParticipants(t *testing.T) {
	users := &stubUserDirectory{roles: map[int64][]Role{
		40: {RoleCaseWorker},
		41: {RoleCaseWorker},
		42: {RoleCaseWorker},
	}}
	cases := &stubCaseDirectory{cases: map[int64]CaseAccess{
		1: {
			CreatedBy: ptr(99),
			Participants: []Participant{
				{UserID: 40, Role: ParticipantReadOnly},
				{UserID: 41, Role: ParticipantEditor},
			},
		},
	}}
	eval := NewEvaluator(users, cases)
	ctx := context.Background()

	// Read-only participant: read yes, write no.
	ok, err := eval.CanAccess(ctx, principalFor(40), 1, AccessRead)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = eval.CanAccess(ctx, principalFor(40), 1, AccessWrite)
	require.NoError(t, err)
	require.False(t, ok)

	// Editor participant: both allowed.
	ok, err = eval.CanAccess(ctx, principalFor(41), 1, AccessWrite)
	require.NoError(t, err)
	require.True(t, ok)

	// No relation at all: denied both ways.
	for _, kind := range []AccessKind{AccessRead, AccessWrite} {
		ok, err = eval.CanAccess(ctx, principalFor(42), 1, kind)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestCanAccessFirstParticipantEntryWins(t *testing.T) {
	users := &stubUserDirectory{roles: map[int64][]Role{40: {RoleCaseWorker}}}
	cases := &stubCaseDirectory{cases: map[int64]CaseAccess{
		1: {Participants: []Participant{
			{UserID: 40, Role: ParticipantReadOnly},
			{UserID: 40, Role: ParticipantEditor},
		}},
	}}
	eval := NewEvaluator(users, cases)

	ok, err := eval.CanAccess(context.Background(), principalFor(40), 1, AccessWrite)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanAccessIsIdempotent(t *testing.T) {
	users := &stubUserDirectory{roles: map[int64][]Role{40: {RoleCaseWorker}}}
	cases := &stubCaseDirectory{cases: map[int64]CaseAccess{
		1: {Participants: []Participant{{UserID: 40, Role: ParticipantEditor}}},
	}}
	eval := NewEvaluator(users, cases)

	for i := 0; i < 25; i++ {
		ok, err := eval.CanAccess(context.Background(), principalFor(40), 1, AccessWrite)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestCanAccessPropagatesInfrastructureFaults(t *testing.T) {
	boom := errors.New("connection refused")

	eval := NewEvaluator(&stubUserDirectory{err: boom}, &stubCaseDirectory{})
	ok, err := eval.CanAccess(context.Background(), principalFor(1), 1, AccessRead)
	require.ErrorIs(t, err, boom)
	require.False(t, ok)

	users := &stubUserDirectory{roles: map[int64][]Role{1: {RoleCaseWorker}}}
	eval = NewEvaluator(users, &stubCaseDirectory{err: boom})
	ok, err = eval.CanAccess(context.Background(), principalFor(1), 1, AccessRead)
	require.ErrorIs(t, err, boom)
	require.False(t, ok)
}
