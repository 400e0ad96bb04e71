// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mediaportal/internal/access"
	"mediaportal/internal/models"
)

const (
	// RoleKey is the context key for the acting user's hydrated role.
	RoleKey contextKey = "role"

	// ScopeKey is the context key for the accessible-category scope
	// attached by AttachAccessibleCategories.
	ScopeKey contextKey = "category_scope"
)

// CategoryParam is the chi URL parameter name routes use for category
// ids, so the authorizer can find the target category without knowing
// individual routes.
const CategoryParam = "categoryID"

// RoleSource loads a role with its category grants hydrated.
// *store.RoleStore satisfies it.
type RoleSource interface {
	FindByID(id int64) (*models.Role, error)
}

// Checker answers category access queries. *access.Resolver satisfies it.
type Checker interface {
	HasCategoryAccess(role *models.Role, categoryID int64) (bool, error)
	AccessibleCategoryIDs(role *models.Role) ([]int64, error)
}

// Scope is the advisory category filter AttachAccessibleCategories puts
// on the context. It narrows listings; it is never an authorization
// decision by itself.
type Scope struct {
	// All marks unrestricted access: no filtering needed.
	All bool

	// IDs is the effective accessible category set when All is false.
	IDs []int64
}

// Authorizer wraps protected operations with permission and
// category-scope checks. The role is reloaded from the store on every
// request so flag and grant edits apply immediately.
type Authorizer struct {
	roles   RoleSource
	checker Checker
}

// NewAuthorizer creates an Authorizer over the given role source and
// access checker.
func NewAuthorizer(roles RoleSource, checker Checker) *Authorizer {
	return &Authorizer{roles: roles, checker: checker}
}

// RequirePermission enforces one permission flag, plus the category
// scope when the flag is category-scoped. It must run after RequireAuth.
//
// Outcomes: missing role → 403 (fail closed); flag false → 403;
// category out of scope → 403; malformed category id → 400; store
// failure → 500. Two special cases: creating a root category (create
// flag with no parent id supplied) is admin-only, and a category-scoped
// view check with no category id in the request passes — listing
// handlers filter through the attached scope instead.
func (a *Authorizer) RequirePermission(p models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromCtx(r.Context())
			if sess == nil {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			role, err := a.roles.FindByID(sess.RoleID)
			if err != nil {
				slog.Error("role load failed", "role_id", sess.RoleID, "error", err)
				writeJSONError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if role == nil {
				// A user without a resolvable role is denied, never
				// granted defaults.
				writeJSONError(w, http.StatusForbidden, "access denied")
				return
			}

			r = r.WithContext(context.WithValue(r.Context(), RoleKey, role))

			if role.IsAdmin {
				next.ServeHTTP(w, r)
				return
			}

			if !role.HasPermission(p) {
				writeJSONError(w, http.StatusForbidden, "access denied")
				return
			}

			if p.CategoryScoped() && !role.CanManageAllCategories {
				if !a.checkCategoryScope(w, r, p, role) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// checkCategoryScope locates the category id the request targets and
// consults the resolver. Returns false when a response has been written.
func (a *Authorizer) checkCategoryScope(w http.ResponseWriter, r *http.Request, p models.Permission, role *models.Role) bool {
	categoryID, present, err := categoryIDFromRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid category id")
		return false
	}

	if !present {
		if p == models.PermCreateCategories {
			// No parent supplied: creating a root category. Only admins
			// may add new roots, whatever the create flag says.
			writeJSONError(w, http.StatusForbidden, "only administrators may create root categories")
			return false
		}
		if p == models.PermViewMaterials || p == models.PermDownloadMaterials {
			// View-style checks without a target defer filtering to the
			// query layer rather than denying outright.
			return true
		}
		// Mutating without an identifiable category target is handled by
		// the handler against the entity's stored category.
		return true
	}

	ok, err := a.checker.HasCategoryAccess(role, categoryID)
	if err != nil {
		slog.Error("category access check failed",
			"role_id", role.ID,
			"category_id", categoryID,
			"error", err,
		)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if !ok {
		writeJSONError(w, http.StatusForbidden, "access denied")
		return false
	}
	return true
}

// categoryIDFromRequest finds a category-id-bearing value: the chi URL
// parameter first, then the category_id and parent_id request values.
// Returns present=false when the request carries none, and an error for
// a value that is present but not numeric.
func categoryIDFromRequest(r *http.Request) (int64, bool, error) {
	raw := chi.URLParam(r, CategoryParam)
	if raw == "" {
		raw = r.FormValue("category_id")
	}
	if raw == "" {
		raw = r.FormValue("parent_id")
	}
	if raw == "" {
		return 0, false, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// AttachAccessibleCategories annotates the request context with the
// role's category scope for downstream listing and search filters. It
// never blocks: on failure the request continues without a scope and
// handlers fall back to their own checks.
func (a *Authorizer) AttachAccessibleCategories(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := RoleFromCtx(r.Context())
		if role == nil {
			sess := SessionFromCtx(r.Context())
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}
			loaded, err := a.roles.FindByID(sess.RoleID)
			if err != nil || loaded == nil {
				next.ServeHTTP(w, r)
				return
			}
			role = loaded
		}

		scope := &Scope{}
		if access.Unrestricted(role) {
			scope.All = true
		} else {
			ids, err := a.checker.AccessibleCategoryIDs(role)
			if err != nil {
				slog.Error("accessible categories failed", "role_id", role.ID, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			scope.IDs = ids
		}

		ctx := context.WithValue(r.Context(), ScopeKey, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RoleFromCtx extracts the hydrated role placed on the context by
// RequirePermission. Returns nil when no permission check has run.
func RoleFromCtx(ctx context.Context) *models.Role {
	role, _ := ctx.Value(RoleKey).(*models.Role)
	return role
}

// ScopeFromCtx extracts the category scope attached by
// AttachAccessibleCategories. Returns nil when no scope is attached.
func ScopeFromCtx(ctx context.Context) *Scope {
	scope, _ := ctx.Value(ScopeKey).(*Scope)
	return scope
}
