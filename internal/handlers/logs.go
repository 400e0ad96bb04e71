package handlers

import (
	"log/slog"
	"net/http"

	"mediaportal/internal/models"
	"mediaportal/internal/store"
)

// Logs exposes the audit trail to roles with the view-logs permission.
type Logs struct {
	audit *store.AuditStore
}

// NewLogs creates a new Logs handler group.
func NewLogs(audit *store.AuditStore) *Logs {
	return &Logs{audit: audit}
}

// List returns audit entries newest first with limit/offset paging.
func (h *Logs) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	entries, err := h.audit.List(limit, offset)
	if err != nil {
		slog.Error("list audit log failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
