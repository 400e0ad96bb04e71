package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one user-visible action for the activity log.
// Writes are fire-and-forget; a failed audit insert never fails the
// request that caused it.
type AuditEntry struct {
	ID        int64      `json:"id"`
	UserID    *uuid.UUID `json:"user_id"`
	Action    string     `json:"action"`
	Entity    string     `json:"entity"`
	EntityID  string     `json:"entity_id"`
	Detail    string     `json:"detail"`
	CreatedAt time.Time  `json:"created_at"`
}
