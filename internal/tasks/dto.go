package tasks

import "time"

// CreateTaskRequest carries the fields for opening a task on a case.
type CreateTaskRequest struct {
	Title          string     `json:"title" validate:"required,max=100"`
	Description    *string    `json:"description,omitempty"`
	Status         *string    `json:"status,omitempty" validate:"omitempty,oneof=TODO IN_PROGRESS COMPLETED CANCELLED"`
	Priority       *string    `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CaseID         int64      `json:"case_id" validate:"required,gt=0"`
	AssignedUserID *int64     `json:"assigned_user_id,omitempty" validate:"omitempty,gt=0"`
}

// UpdateTaskRequest carries optional updates for a task.
type UpdateTaskRequest struct {
	Title          *string    `json:"title,omitempty" validate:"omitempty,max=100"`
	Description    *string    `json:"description,omitempty"`
	Status         *string    `json:"status,omitempty" validate:"omitempty,oneof=TODO IN_PROGRESS COMPLETED CANCELLED"`
	Priority       *string    `json:"priority,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	AssignedUserID *int64     `json:"assigned_user_id,omitempty" validate:"omitempty,gt=0"`
}

// AssignTaskRequest reassigns a task to a user.
type AssignTaskRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}
