package auth

import (
	"time"

	"github.com/skk/jds-backend/internal/authz"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	Roles        []authz.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
