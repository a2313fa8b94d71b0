package clients

import "time"

// Client is a person the service works cases for.
type Client struct {
	ID              int64     `json:"id"`
	ReferenceNumber string    `json:"reference_number"`
	FirstName       string    `json:"firstname"`
	LastName        string    `json:"lastname"`
	Email           string    `json:"email"`
	NINumber        string    `json:"ni_number"`
	Phone           *string   `json:"phone,omitempty"`
	Address         *string   `json:"address,omitempty"`
	Company         *string   `json:"company,omitempty"`
	Occupation      *string   `json:"occupation,omitempty"`
	AdditionalNote  *string   `json:"additional_note,omitempty"`
	HasConflict     bool      `json:"has_conflict_of_interest"`
	ConflictComment *string   `json:"conflict_of_interest_comment,omitempty"`
	CreatedBy       *int64    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserSummary is the slim shape of a user assigned to a client.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
