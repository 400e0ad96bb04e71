// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mediaportal/internal/middleware"
	"mediaportal/internal/store"
)

// Users groups the user administration HTTP handlers.
type Users struct {
	users *store.UserStore
	roles *store.RoleStore
	audit *store.AuditStore
}

// NewUsers creates a new Users handler group.
func NewUsers(users *store.UserStore, roles *store.RoleStore, audit *store.AuditStore) *Users {
	return &Users{users: users, roles: roles, audit: audit}
}

// List returns all portal users.
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		slog.Error("list users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Create adds a user with a validated role assignment.
func (h *Users) Create(w http.ResponseWriter, r *http.Request) {
	login := r.FormValue("login")
	displayName := r.FormValue("display_name")
	password := r.FormValue("password")

	if msg := validateUser(login, displayName); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validatePassword(password); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	roleID, ok := parseID(r.FormValue("role_id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid role id.")
		return
	}

	role, err := h.roles.FindByID(roleID)
	if err != nil {
		slog.Error("role lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if role == nil {
		writeError(w, http.StatusBadRequest, "Role not found.")
		return
	}

	existing, err := h.users.FindByLogin(login)
	if err != nil {
		slog.Error("login uniqueness check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Login is already taken.")
		return
	}

	user, err := h.users.Create(login, password, displayName, roleID)
	if err != nil {
		slog.Error("create user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "user.create", user.ID, user.Login)
	writeJSON(w, http.StatusCreated, user)
}

// Update changes a user's display name and role.
func (h *Users) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}
	displayName := r.FormValue("display_name")
	roleID, ok := parseID(r.FormValue("role_id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid role id.")
		return
	}

	role, err := h.roles.FindByID(roleID)
	if err != nil {
		slog.Error("role lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if role == nil {
		writeError(w, http.StatusBadRequest, "Role not found.")
		return
	}

	user, err := h.users.FindByID(id)
	if err != nil {
		slog.Error("find user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found.")
		return
	}

	if err := h.users.Update(id, displayName, roleID); err != nil {
		slog.Error("update user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "user.update", id, user.Login)
	writeJSON(w, http.StatusOK, map[string]any{"updated": id})
}

// ResetPassword sets a new password for a user.
func (h *Users) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}
	password := r.FormValue("password")
	if msg := validatePassword(password); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.users.SetPassword(id, password); err != nil {
		slog.Error("set password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "user.reset_password", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"updated": id})
}

// ResetTOTP clears a user's 2FA enrollment so they can set it up again,
// for example after losing their authenticator device.
func (h *Users) ResetTOTP(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}

	if err := h.users.ResetTOTP(id); err != nil {
		slog.Error("reset totp failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "user.reset_2fa", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"updated": id})
}

// Delete removes a user. Self-deletion is rejected so an administrator
// cannot lock themselves out mid-session.
func (h *Users) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil && sess.UserID == id {
		writeError(w, http.StatusConflict, "You cannot delete your own account.")
		return
	}

	if err := h.users.Delete(id); err != nil {
		slog.Error("delete user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "user.delete", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// parseUserID reads the user UUID from the route.
func parseUserID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// recordAudit writes a user audit entry attributed to the session user.
func (h *Users) recordAudit(r *http.Request, action string, id uuid.UUID, detail string) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil {
		h.audit.Record(&sess.UserID, action, "user", id.String(), detail)
		return
	}
	h.audit.Record(nil, action, "user", id.String(), detail)
}
