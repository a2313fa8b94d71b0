package clients

// CreateClientRequest carries the fields for registering a client.
type CreateClientRequest struct {
	FirstName       string  `json:"firstname" validate:"required,max=100"`
	LastName        string  `json:"lastname" validate:"required,max=100"`
	Email           string  `json:"email" validate:"required,email"`
	NINumber        string  `json:"ni_number" validate:"required,max=20"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address         *string `json:"address,omitempty"`
	Company         *string `json:"company,omitempty" validate:"omitempty,max=100"`
	Occupation      *string `json:"occupation,omitempty" validate:"omitempty,max=100"`
	AdditionalNote  *string `json:"additional_note,omitempty"`
	HasConflict     *bool   `json:"has_conflict_of_interest,omitempty"`
	ConflictComment *string `json:"conflict_of_interest_comment,omitempty"`
	ReferenceNumber *string `json:"reference_number,omitempty" validate:"omitempty,max=50"`
	AssignedUserID  *int64  `json:"assigned_user_id,omitempty" validate:"omitempty,gt=0"`
}

// UpdateClientRequest carries optional updates for a client.
type UpdateClientRequest struct {
	FirstName       *string `json:"firstname,omitempty" validate:"omitempty,max=100"`
	LastName        *string `json:"lastname,omitempty" validate:"omitempty,max=100"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	NINumber        *string `json:"ni_number,omitempty" validate:"omitempty,max=20"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address         *string `json:"address,omitempty"`
	Company         *string `json:"company,omitempty" validate:"omitempty,max=100"`
	Occupation      *string `json:"occupation,omitempty" validate:"omitempty,max=100"`
	AdditionalNote  *string `json:"additional_note,omitempty"`
	HasConflict     *bool   `json:"has_conflict_of_interest,omitempty"`
	ConflictComment *string `json:"conflict_of_interest_comment,omitempty"`
	ReferenceNumber *string `json:"reference_number,omitempty" validate:"omitempty,max=50"`
}

// AssignUserRequest links a user to a client.
type AssignUserRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}
