// Package activity keeps the append-only log of user-visible actions
// (case created, task assigned, document signed, ...).
package activity

import (
	"context"
	"time"
)

// Entry is one recorded action.
type Entry struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	CaseID     *int64    `json:"case_id,omitempty"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder is the write side consumed by the domain services.
type Recorder interface {
	Log(ctx context.Context, e Entry) error
}
