package users

// CreateUserRequest carries the fields for registering a user account.
type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=20"`
	Email    string   `json:"email" validate:"required,email,max=50"`
	Password string   `json:"password" validate:"required,min=8,max=120"`
	Roles    []string `json:"roles" validate:"dive,oneof=ADMIN SUPERVISOR CASE_WORKER VIEWER"`
}

// UpdateUserRequest carries optional updates for a user account.
type UpdateUserRequest struct {
	Email    *string  `json:"email,omitempty" validate:"omitempty,email,max=50"`
	Password *string  `json:"password,omitempty" validate:"omitempty,min=8,max=120"`
	IsActive *bool    `json:"is_active,omitempty"`
	Roles    []string `json:"roles,omitempty" validate:"omitempty,dive,oneof=ADMIN SUPERVISOR CASE_WORKER VIEWER"`
}
