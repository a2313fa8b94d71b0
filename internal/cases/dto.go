package cases

import "time"

// CreateCaseRequest carries the fields for opening a case.
type CreateCaseRequest struct {
	Title           string     `json:"title" validate:"required,max=100"`
	Description     *string    `json:"description,omitempty"`
	Status          *string    `json:"status,omitempty" validate:"omitempty,oneof=OPEN IN_PROGRESS PENDING RESOLVED CLOSED"`
	Priority        string     `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
	ReferenceNumber *string    `json:"reference_number,omitempty" validate:"omitempty,max=50"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ClientID        *int64     `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	AssignedUserID  *int64     `json:"assigned_user_id,omitempty" validate:"omitempty,gt=0"`
}

// UpdateCaseRequest carries optional updates for a case.
type UpdateCaseRequest struct {
	Title          *string    `json:"title,omitempty" validate:"omitempty,max=100"`
	Description    *string    `json:"description,omitempty"`
	Status         *string    `json:"status,omitempty" validate:"omitempty,oneof=OPEN IN_PROGRESS PENDING RESOLVED CLOSED"`
	Priority       *string    `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	IDChecked      *bool      `json:"id_checked,omitempty"`
	IDCheckedNote  *string    `json:"id_checked_comment,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ClientID       *int64     `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	AssignedUserID *int64     `json:"assigned_user_id,omitempty" validate:"omitempty,gt=0"`
}

// AddParticipantRequest grants one user case-scoped access.
type AddParticipantRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Role   string `json:"role" validate:"required,oneof=READ_ONLY EDITOR"`
}

// ListCasesRequest filters case listings.
type ListCasesRequest struct {
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=OPEN IN_PROGRESS PENDING RESOLVED CLOSED"`
	Priority *string `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Search   *string `json:"search,omitempty"`
	Limit    int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int     `json:"offset" validate:"gte=0"`
}
