// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mediaportal/internal/access"
	"mediaportal/internal/cache"
	"mediaportal/internal/middleware"
	"mediaportal/internal/models"
	"mediaportal/internal/store"
)

// Categories groups the category tree HTTP handlers. Permission and
// category-scope checks run in the authorization middleware; handlers
// add the checks that need the loaded entity, shape responses, and keep
// the access cache fresh.
type Categories struct {
	categories  *store.CategoryStore
	resolver    *access.Resolver
	audit       *store.AuditStore
	accessCache *cache.AccessCache
}

// NewCategories creates a new Categories handler group. accessCache may
// be nil when Valkey caching is disabled.
func NewCategories(categories *store.CategoryStore, resolver *access.Resolver, audit *store.AuditStore, accessCache *cache.AccessCache) *Categories {
	return &Categories{
		categories:  categories,
		resolver:    resolver,
		audit:       audit,
		accessCache: accessCache,
	}
}

// invalidateAccess drops every cached access set after a tree change.
func (h *Categories) invalidateAccess(r *http.Request) {
	if h.accessCache != nil {
		h.accessCache.InvalidateAll(r.Context())
	}
}

// List returns the categories the acting role can reach, as a flat list.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	role := middleware.RoleFromCtx(r.Context())
	if role == nil {
		writeError(w, http.StatusForbidden, "Access denied.")
		return
	}
	cats, err := h.resolver.AccessibleCategories(role)
	if err != nil {
		slog.Error("list categories failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// Tree returns the accessible categories assembled into a forest.
func (h *Categories) Tree(w http.ResponseWriter, r *http.Request) {
	role := middleware.RoleFromCtx(r.Context())
	if role == nil {
		writeError(w, http.StatusForbidden, "Access denied.")
		return
	}
	cats, err := h.resolver.AccessibleCategories(role)
	if err != nil {
		slog.Error("category tree failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	tree := store.BuildTree(cats)
	if tree == nil {
		tree = []models.Category{}
	}
	writeJSON(w, http.StatusOK, tree)
}

// Get returns a single category.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, middleware.CategoryParam))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid category id.")
		return
	}
	c, err := h.categories.FindByID(id)
	if err != nil {
		slog.Error("find category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Category not found.")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create adds a category under the given parent, or at the root when no
// parent id is supplied (root creation is admin-only, enforced in the
// middleware).
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	if msg := validateCategoryName(name); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	parentID, ok := parseOptionalParent(r.FormValue("parent_id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid parent category id.")
		return
	}

	order, err := h.categories.NextSortOrder(parentID)
	if err != nil {
		slog.Error("next sort order failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	created, err := h.categories.Create(&models.Category{
		Name:      name,
		ParentID:  parentID,
		SortOrder: order,
	})
	if errors.Is(err, store.ErrParentNotFound) {
		writeError(w, http.StatusBadRequest, "Parent category not found.")
		return
	}
	if err != nil {
		slog.Error("create category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.invalidateAccess(r)
	h.recordAudit(r, "category.create", created.ID, created.Name)
	writeJSON(w, http.StatusCreated, created)
}

// Update renames a category or changes its sort order.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, middleware.CategoryParam))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid category id.")
		return
	}
	name := r.FormValue("name")
	if msg := validateCategoryName(name); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.categories.FindByID(id)
	if err != nil {
		slog.Error("find category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Category not found.")
		return
	}

	c.Name = name
	if raw := r.FormValue("sort_order"); raw != "" {
		order, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid sort order.")
			return
		}
		c.SortOrder = order
	}

	if err := h.categories.Update(c); err != nil {
		slog.Error("update category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.recordAudit(r, "category.update", c.ID, c.Name)
	writeJSON(w, http.StatusOK, c)
}

// Move re-parents a category. The middleware checks access to the moved
// category; access to the destination parent is checked here because
// only the handler knows which form field holds it.
func (h *Categories) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, middleware.CategoryParam))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid category id.")
		return
	}
	newParentID, ok := parseOptionalParent(r.FormValue("new_parent_id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid parent category id.")
		return
	}

	role := middleware.RoleFromCtx(r.Context())
	if role == nil {
		writeError(w, http.StatusForbidden, "Access denied.")
		return
	}
	if newParentID == nil {
		// Moving to the root changes the top-level layout, same as
		// creating a root category: administrators only.
		if !role.IsAdmin {
			writeError(w, http.StatusForbidden, "Only administrators may move categories to the root.")
			return
		}
	} else if !access.Unrestricted(role) {
		allowed, err := h.resolver.HasCategoryAccess(role, *newParentID)
		if err != nil {
			slog.Error("move access check failed", "error", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
			return
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "No access to the destination category.")
			return
		}
	}

	moved, err := h.categories.Move(id, newParentID)
	switch {
	case errors.Is(err, store.ErrCyclicMove):
		writeError(w, http.StatusBadRequest, "Cannot move a category under its own subtree.")
		return
	case errors.Is(err, store.ErrParentNotFound):
		writeError(w, http.StatusBadRequest, "Destination category not found.")
		return
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "Category not found.")
		return
	case err != nil:
		slog.Error("move category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.invalidateAccess(r)
	h.recordAudit(r, "category.move", moved.ID, moved.Path)
	writeJSON(w, http.StatusOK, moved)
}

// Reorder updates sort_order for a batch of sibling categories. The body
// is a JSON array of {id, order} pairs.
func (h *Categories) Reorder(w http.ResponseWriter, r *http.Request) {
	var items []store.ReorderItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reorder payload.")
		return
	}

	role := middleware.RoleFromCtx(r.Context())
	if role == nil {
		writeError(w, http.StatusForbidden, "Access denied.")
		return
	}
	if !access.Unrestricted(role) {
		for _, item := range items {
			allowed, err := h.resolver.HasCategoryAccess(role, item.ID)
			if err != nil {
				slog.Error("reorder access check failed", "error", err)
				writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
				return
			}
			if !allowed {
				writeError(w, http.StatusForbidden, "No access to one of the categories.")
				return
			}
		}
	}

	if err := h.categories.Reorder(items); err != nil {
		slog.Error("reorder categories failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reordered": len(items)})
}

// SetActive toggles the soft-delete flag. Deactivating a category hides
// it and its subtree from restricted listings without touching data.
func (h *Categories) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, middleware.CategoryParam))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid category id.")
		return
	}
	active := r.FormValue("active") == "true"

	if err := h.categories.SetActive(id, active); err != nil {
		slog.Error("set category active failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.invalidateAccess(r)
	h.recordAudit(r, "category.set_active", id, strconv.FormatBool(active))
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": active})
}

// Delete removes a category once it has no active children or materials.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, middleware.CategoryParam))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid category id.")
		return
	}

	err := h.categories.Delete(id)
	switch {
	case errors.Is(err, store.ErrHasChildren):
		writeError(w, http.StatusConflict, "Category still has active child categories.")
		return
	case errors.Is(err, store.ErrHasMaterials):
		writeError(w, http.StatusConflict, "Category still has active materials.")
		return
	case err != nil:
		slog.Error("delete category failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	h.invalidateAccess(r)
	h.recordAudit(r, "category.delete", id, "")
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// recordAudit writes a category audit entry attributed to the session user.
func (h *Categories) recordAudit(r *http.Request, action string, id int64, detail string) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil {
		h.audit.Record(&sess.UserID, action, "category", strconv.FormatInt(id, 10), detail)
		return
	}
	h.audit.Record(nil, action, "category", strconv.FormatInt(id, 10), detail)
}
