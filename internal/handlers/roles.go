// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mediaportal/internal/cache"
	"mediaportal/internal/middleware"
	"mediaportal/internal/models"
	"mediaportal/internal/store"
)

// Roles groups the role administration HTTP handlers.
type Roles struct {
	roles       *store.RoleStore
	categories  *store.CategoryStore
	audit       *store.AuditStore
	accessCache *cache.AccessCache
}

// NewRoles creates a new Roles handler group. accessCache may be nil
// when Valkey caching is disabled.
func NewRoles(roles *store.RoleStore, categories *store.CategoryStore, audit *store.AuditStore, accessCache *cache.AccessCache) *Roles {
	return &Roles{roles: roles, categories: categories, audit: audit, accessCache: accessCache}
}

// List returns all roles with their grants.
func (h *Roles) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List()
	if err != nil {
		slog.Error("list roles failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// Get returns one role.
func (h *Roles) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "roleID"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid role id.")
		return
	}
	role, err := h.roles.FindByID(id)
	if err != nil {
		slog.Error("find role failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if role == nil {
		writeError(w, http.StatusNotFound, "Role not found.")
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// Create adds a role from the submitted permission flags and grants.
func (h *Roles) Create(w http.ResponseWriter, r *http.Request) {
	role, msg, err := h.roleFromForm(r)
	if err != nil {
		slog.Error("parse role form failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.roles.Create(role)
	if err != nil {
		slog.Error("create role failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "role.create", created.ID, created.Name)
	writeJSON(w, http.StatusCreated, created)
}

// Update replaces a role's fields, flags, and grants.
func (h *Roles) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "roleID"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid role id.")
		return
	}

	existing, err := h.roles.FindByID(id)
	if err != nil {
		slog.Error("find role failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Role not found.")
		return
	}

	role, msg, err := h.roleFromForm(r)
	if err != nil {
		slog.Error("parse role form failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	role.ID = id

	if err := h.roles.Update(role); err != nil {
		slog.Error("update role failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	// Permission or grant edits change what the role can reach.
	if h.accessCache != nil {
		h.accessCache.InvalidateRole(r.Context(), id)
	}

	h.recordAudit(r, "role.update", id, role.Name)
	writeJSON(w, http.StatusOK, map[string]any{"updated": id})
}

// SetCategories replaces only the role's explicit category grants.
func (h *Roles) SetCategories(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "roleID"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid role id.")
		return
	}
	ids, msg := h.categoryIDsFromForm(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.roles.SetAllowedCategories(id, ids); err != nil {
		slog.Error("set role categories failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	if h.accessCache != nil {
		h.accessCache.InvalidateRole(r.Context(), id)
	}

	h.recordAudit(r, "role.set_categories", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"updated": id, "granted": len(ids)})
}

// Delete removes a role that no user references.
func (h *Roles) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "roleID"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid role id.")
		return
	}

	err := h.roles.Delete(id)
	if errors.Is(err, store.ErrRoleInUse) {
		writeError(w, http.StatusConflict, "Role is still assigned to users.")
		return
	}
	if err != nil {
		slog.Error("delete role failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	if h.accessCache != nil {
		h.accessCache.InvalidateRole(r.Context(), id)
	}

	h.recordAudit(r, "role.delete", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// roleFromForm builds a role from form fields. Returns a user-facing
// validation message or an internal error.
func (h *Roles) roleFromForm(r *http.Request) (*models.Role, string, error) {
	name := r.FormValue("name")
	description := r.FormValue("description")
	if msg := validateRole(name, description); msg != "" {
		return nil, msg, nil
	}

	accessType := models.CategoryAccessType(r.FormValue("category_access_type"))
	if accessType == "" {
		accessType = models.CategoryAccessAll
	}
	if accessType != models.CategoryAccessAll && accessType != models.CategoryAccessSelected {
		return nil, "Category access type must be 'all' or 'selected'.", nil
	}

	ids, msg := h.categoryIDsFromForm(r)
	if msg != "" {
		return nil, msg, nil
	}

	formBool := func(field string) bool { return r.FormValue(field) == "true" }
	role := &models.Role{
		Name:               name,
		Description:        description,
		IsAdmin:            formBool("is_admin"),
		CategoryAccessType: accessType,
		AllowedCategoryIDs: ids,

		CanViewMaterials:     formBool("can_view_materials"),
		CanDownloadMaterials: formBool("can_download_materials"),
		CanCreateMaterials:   formBool("can_create_materials"),
		CanEditMaterials:     formBool("can_edit_materials"),
		CanDeleteMaterials:   formBool("can_delete_materials"),

		CanCreateCategories:    formBool("can_create_categories"),
		CanEditCategories:      formBool("can_edit_categories"),
		CanDeleteCategories:    formBool("can_delete_categories"),
		CanManageAllCategories: formBool("can_manage_all_categories"),

		CanViewUsers:   formBool("can_view_users"),
		CanCreateUsers: formBool("can_create_users"),
		CanEditUsers:   formBool("can_edit_users"),
		CanDeleteUsers: formBool("can_delete_users"),

		CanViewLogs:    formBool("can_view_logs"),
		CanManageRoles: formBool("can_manage_roles"),
	}
	return role, "", nil
}

// categoryIDsFromForm reads the repeated category_ids field and verifies
// each category exists.
func (h *Roles) categoryIDsFromForm(r *http.Request) ([]int64, string) {
	if err := r.ParseForm(); err != nil {
		return nil, "Invalid form data."
	}
	raw := r.Form["category_ids"]
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, ok := parseID(v)
		if !ok {
			return nil, "Invalid category id in grants."
		}
		c, err := h.categories.FindByID(id)
		if err != nil {
			slog.Error("grant category lookup failed", "error", err)
			return nil, "An unexpected error occurred."
		}
		if c == nil {
			return nil, "Granted category " + v + " does not exist."
		}
		ids = append(ids, id)
	}
	return ids, ""
}

// recordAudit writes a role audit entry attributed to the session user.
func (h *Roles) recordAudit(r *http.Request, action string, id int64, detail string) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil {
		h.audit.Record(&sess.UserID, action, "role", strconv.FormatInt(id, 10), detail)
		return
	}
	h.audit.Record(nil, action, "role", strconv.FormatInt(id, 10), detail)
}
