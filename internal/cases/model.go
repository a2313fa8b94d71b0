package cases

import (
	"time"

	"github.com/skk/jds-backend/internal/authz"
)

// CaseStatus tracks a case through its lifecycle.
type CaseStatus string

const (
	StatusOpen       CaseStatus = "OPEN"
	StatusInProgress CaseStatus = "IN_PROGRESS"
	StatusPending    CaseStatus = "PENDING"
	StatusResolved   CaseStatus = "RESOLVED"
	StatusClosed     CaseStatus = "CLOSED"
)

// Valid reports whether the status is a known lifecycle state.
func (s CaseStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusPending, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// CasePriority ranks how urgently a case needs attention.
type CasePriority string

const (
	PriorityLow    CasePriority = "LOW"
	PriorityMedium CasePriority = "MEDIUM"
	PriorityHigh   CasePriority = "HIGH"
	PriorityUrgent CasePriority = "URGENT"
)

// Valid reports whether the priority is a known value.
func (p CasePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Case is the primary business resource being access-controlled.
type Case struct {
	ID              int64        `json:"id"`
	ReferenceNumber string       `json:"reference_number"`
	Title           string       `json:"title"`
	Description     *string      `json:"description,omitempty"`
	Status          CaseStatus   `json:"status"`
	Priority        CasePriority `json:"priority"`
	IDChecked       bool         `json:"id_checked"`
	IDCheckedNote   *string      `json:"id_checked_comment,omitempty"`
	DueDate         *time.Time   `json:"due_date,omitempty"`
	ClientID        *int64       `json:"client_id,omitempty"`
	CreatedBy       *int64       `json:"created_by,omitempty"`
	AssignedTo      *int64       `json:"assigned_to,omitempty"`
	LastModifiedBy  *int64       `json:"last_modified_by,omitempty"`
	NoteCount       int64        `json:"note_count"`
	DocumentCount   int64        `json:"document_count"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Participant is one user explicitly granted case-scoped access.
type Participant struct {
	UserID   int64                 `json:"user_id"`
	Username string                `json:"username"`
	Role     authz.ParticipantRole `json:"role"`
	AddedAt  time.Time             `json:"added_at"`
}
