// Package authz implements the two-tier authorization model: global
// role/permission grants gate operation categories at the API boundary,
// and a per-case evaluator gates access to individual cases.
package authz

// Role identifies a class of global authority held by a user.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleCaseWorker Role = "CASE_WORKER"
	RoleSupervisor Role = "SUPERVISOR"
	RoleViewer     Role = "VIEWER"
)

// AllRoles lists every defined role.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleCaseWorker, RoleSupervisor, RoleViewer}
}

// Valid reports whether the role is one of the defined values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCaseWorker, RoleSupervisor, RoleViewer:
		return true
	}
	return false
}

// Permission identifies one fine-grained capability. Permissions are never
// assigned to users directly, only granted through roles.
type Permission string

const (
	PermCaseRead   Permission = "CASE_READ"
	PermCaseWrite  Permission = "CASE_WRITE"
	PermCaseDelete Permission = "CASE_DELETE"

	PermClientRead   Permission = "CLIENT_READ"
	PermClientWrite  Permission = "CLIENT_WRITE"
	PermClientDelete Permission = "CLIENT_DELETE"

	PermDocumentRead   Permission = "DOCUMENT_READ"
	PermDocumentWrite  Permission = "DOCUMENT_WRITE"
	PermDocumentDelete Permission = "DOCUMENT_DELETE"
	PermDocumentSign   Permission = "DOCUMENT_SIGN"

	PermUserRead   Permission = "USER_READ"
	PermUserWrite  Permission = "USER_WRITE"
	PermUserDelete Permission = "USER_DELETE"

	PermTaskRead   Permission = "TASK_READ"
	PermTaskWrite  Permission = "TASK_WRITE"
	PermTaskDelete Permission = "TASK_DELETE"
	PermTaskAssign Permission = "TASK_ASSIGN"

	PermNoteRead   Permission = "NOTE_READ"
	PermNoteWrite  Permission = "NOTE_WRITE"
	PermNoteDelete Permission = "NOTE_DELETE"

	PermAnalyticsView Permission = "ANALYTICS_VIEW"
	PermSystemAdmin   Permission = "SYSTEM_ADMIN"
)

// AccessKind distinguishes read from write access in per-case checks.
type AccessKind string

const (
	AccessRead  AccessKind = "READ"
	AccessWrite AccessKind = "WRITE"
)

// ParticipantRole is the case-scoped role of an explicitly added participant.
type ParticipantRole string

const (
	ParticipantReadOnly ParticipantRole = "READ_ONLY"
	ParticipantEditor   ParticipantRole = "EDITOR"
)

// Participant grants one user case-scoped access independent of ownership.
type Participant struct {
	UserID int64
	Role   ParticipantRole
}

// CaseAccess is the slice of case state the evaluator decides against:
// the creator, the currently assigned user, and the participant set.
type CaseAccess struct {
	CreatedBy    *int64
	AssignedTo   *int64
	Participants []Participant
}
