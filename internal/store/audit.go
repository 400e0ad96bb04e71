package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"mediaportal/internal/models"
)

// AuditStore writes and reads the activity log. Record is fire-and-forget:
// a failed insert is logged and swallowed so audit trouble never turns a
// successful operation into an error response.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore creates a new AuditStore with the given database connection.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record inserts one audit entry.
func (s *AuditStore) Record(userID *uuid.UUID, action, entity, entityID, detail string) {
	_, err := s.db.Exec(`
		INSERT INTO audit_log (user_id, action, entity, entity_id, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, action, entity, entityID, detail)
	if err != nil {
		slog.Error("audit write failed",
			"action", action,
			"entity", entity,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// List returns audit entries newest first, with pagination.
func (s *AuditStore) List(limit, offset int) ([]models.AuditEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, action, entity, entity_id, detail, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Entity, &e.EntityID, &e.Detail, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
