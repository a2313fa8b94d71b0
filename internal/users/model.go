package users

import (
	"time"

	"github.com/skk/jds-backend/internal/authz"
)

// User represents a user account for management.
type User struct {
	ID           int64        `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Roles        []authz.Role `json:"roles"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
