package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/skk/jds-backend/internal/shared"
)

// UserDirectory resolves the roles currently assigned to a user. A missing
// user is reported with shared.ErrNotFound.
type UserDirectory interface {
	RolesOf(ctx context.Context, userID int64) ([]Role, error)
}

// CaseDirectory resolves the access-relevant slice of one case. A missing
// case is reported with shared.ErrNotFound.
type CaseDirectory interface {
	AccessContext(ctx context.Context, caseID int64) (CaseAccess, error)
}

// Evaluator decides whether a principal may read or write one specific
// case. It is stateless and performs at most one user lookup and one case
// lookup per call, so it is safe for unsynchronized concurrent use.
type Evaluator struct {
	users UserDirectory
	cases CaseDirectory
}

// NewEvaluator constructs an Evaluator over the two lookup collaborators.
func NewEvaluator(users UserDirectory, cases CaseDirectory) *Evaluator {
	return &Evaluator{users: users, cases: cases}
}

// CanAccess applies the per-case decision procedure in strict precedence
// order; the first decisive step wins and later steps are not consulted.
//
//  1. An unauthenticated principal is denied.
//  2. A principal whose user record no longer resolves is denied.
//  3. SUPERVISOR may do anything to any case, provisioned or not.
//  4. VIEWER may read anything (the case need not exist) and write nothing.
//  5. A missing case is allowed through so the fetch path can answer 404;
//     access denial is reserved for cases that exist and are restricted.
//  6. The creator and the assigned user have full access.
//  7. Otherwise the participant list decides: any participation role
//     grants READ, only EDITOR grants WRITE.
//
// Only infrastructure faults from the two lookups surface as errors; every
// policy outcome is a plain allow/deny.
func (e *Evaluator) CanAccess(ctx context.Context, principal *Principal, caseID int64, kind AccessKind) (bool, error) {
	if principal == nil {
		return false, nil
	}

	roles, err := e.users.RolesOf(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("authz: resolve user %d: %w", principal.ID, err)
	}

	if containsRole(roles, RoleSupervisor) {
		return true, nil
	}
	if containsRole(roles, RoleViewer) {
		return kind == AccessRead, nil
	}

	access, err := e.cases.AccessContext(ctx, caseID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Let the fetch path surface 404 instead of masking it as 403.
			return true, nil
		}
		return false, fmt.Errorf("authz: resolve case %d: %w", caseID, err)
	}

	if isOwnerOrAssigned(access, principal.ID) {
		return true, nil
	}

	return checkParticipation(access, principal.ID, kind), nil
}

func containsRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func isOwnerOrAssigned(access CaseAccess, userID int64) bool {
	if access.CreatedBy != nil && *access.CreatedBy == userID {
		return true
	}
	if access.AssignedTo != nil && *access.AssignedTo == userID {
		return true
	}
	return false
}

// checkParticipation scans in list order; the first entry for the user
// decides. Participant uniqueness is enforced where participants are added,
// so under normal data at most one entry can match.
func checkParticipation(access CaseAccess, userID int64, kind AccessKind) bool {
	for _, p := range access.Participants {
		if p.UserID != userID {
			continue
		}
		if kind == AccessRead {
			return true
		}
		return p.Role == ParticipantEditor
	}
	return false
}
