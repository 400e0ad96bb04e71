// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Permission names one boolean capability a role can hold. The set is
// closed: adding a capability means adding a constant here, a column in
// the roles table, and a case in Role.flag. Nothing looks permissions up
// by arbitrary string.
type Permission string

const (
	PermViewMaterials     Permission = "viewMaterials"
	PermDownloadMaterials Permission = "downloadMaterials"
	PermCreateMaterials   Permission = "createMaterials"
	PermEditMaterials     Permission = "editMaterials"
	PermDeleteMaterials   Permission = "deleteMaterials"

	PermCreateCategories    Permission = "createCategories"
	PermEditCategories      Permission = "editCategories"
	PermDeleteCategories    Permission = "deleteCategories"
	PermManageAllCategories Permission = "manageAllCategories"

	PermViewUsers   Permission = "viewUsers"
	PermCreateUsers Permission = "createUsers"
	PermEditUsers   Permission = "editUsers"
	PermDeleteUsers Permission = "deleteUsers"

	PermViewLogs    Permission = "viewLogs"
	PermManageRoles Permission = "manageRoles"
)

// AllPermissions is the authoritative permission vocabulary, in display
// order. Every snapshot handed to clients enumerates exactly this set.
var AllPermissions = []Permission{
	PermViewMaterials, PermDownloadMaterials, PermCreateMaterials,
	PermEditMaterials, PermDeleteMaterials,
	PermCreateCategories, PermEditCategories, PermDeleteCategories,
	PermManageAllCategories,
	PermViewUsers, PermCreateUsers, PermEditUsers, PermDeleteUsers,
	PermViewLogs, PermManageRoles,
}

// categoryScoped is the subset of permissions whose checks additionally
// depend on which category the request touches.
var categoryScoped = map[Permission]bool{
	PermViewMaterials:     true,
	PermDownloadMaterials: true,
	PermCreateMaterials:   true,
	PermEditMaterials:     true,
	PermDeleteMaterials:   true,
	PermCreateCategories:  true,
	PermEditCategories:    true,
	PermDeleteCategories:  true,
}

// CategoryScoped reports whether a permission check for p must also pass
// a category access check.
func (p Permission) CategoryScoped() bool {
	return categoryScoped[p]
}

// CategoryAccessType is a UI hint describing how a role's category grants
// were configured. It is informational only: the resolver never consults
// it, only IsAdmin, CanManageAllCategories and the grant list decide.
type CategoryAccessType string

const (
	CategoryAccessAll      CategoryAccessType = "all"
	CategoryAccessSelected CategoryAccessType = "selected"
)

// Role is a named bundle of capability flags plus explicit category
// grants. AllowedCategoryIDs holds only the directly granted roots of
// access; the cascaded descendant set is computed by the access resolver.
type Role struct {
	ID                 int64              `json:"id"`
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	IsAdmin            bool               `json:"is_admin"`
	CategoryAccessType CategoryAccessType `json:"category_access_type"`

	CanViewMaterials     bool `json:"can_view_materials"`
	CanDownloadMaterials bool `json:"can_download_materials"`
	CanCreateMaterials   bool `json:"can_create_materials"`
	CanEditMaterials     bool `json:"can_edit_materials"`
	CanDeleteMaterials   bool `json:"can_delete_materials"`

	CanCreateCategories    bool `json:"can_create_categories"`
	CanEditCategories      bool `json:"can_edit_categories"`
	CanDeleteCategories    bool `json:"can_delete_categories"`
	CanManageAllCategories bool `json:"can_manage_all_categories"`

	CanViewUsers   bool `json:"can_view_users"`
	CanCreateUsers bool `json:"can_create_users"`
	CanEditUsers   bool `json:"can_edit_users"`
	CanDeleteUsers bool `json:"can_delete_users"`

	CanViewLogs    bool `json:"can_view_logs"`
	CanManageRoles bool `json:"can_manage_roles"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// AllowedCategoryIDs are the explicit grants from the role_categories
	// join table. Stores hydrate this on every fetch; there is no lazy
	// reload path.
	AllowedCategoryIDs []int64 `json:"allowed_category_ids"`
}

// flag maps a permission name onto the matching boolean column.
func (r *Role) flag(p Permission) bool {
	switch p {
	case PermViewMaterials:
		return r.CanViewMaterials
	case PermDownloadMaterials:
		return r.CanDownloadMaterials
	case PermCreateMaterials:
		return r.CanCreateMaterials
	case PermEditMaterials:
		return r.CanEditMaterials
	case PermDeleteMaterials:
		return r.CanDeleteMaterials
	case PermCreateCategories:
		return r.CanCreateCategories
	case PermEditCategories:
		return r.CanEditCategories
	case PermDeleteCategories:
		return r.CanDeleteCategories
	case PermManageAllCategories:
		return r.CanManageAllCategories
	case PermViewUsers:
		return r.CanViewUsers
	case PermCreateUsers:
		return r.CanCreateUsers
	case PermEditUsers:
		return r.CanEditUsers
	case PermDeleteUsers:
		return r.CanDeleteUsers
	case PermViewLogs:
		return r.CanViewLogs
	case PermManageRoles:
		return r.CanManageRoles
	}
	// Unknown permission names never grant anything.
	return false
}

// HasPermission returns true unconditionally for admin roles, otherwise
// the value of the named flag. Unknown names are false.
func (r *Role) HasPermission(p Permission) bool {
	if r.IsAdmin {
		return true
	}
	return r.flag(p)
}

// Permissions returns a complete snapshot of the permission vocabulary
// with the admin override already applied. Clients use it to hydrate
// their capability cache; the key set is identical on every call.
func (r *Role) Permissions() map[Permission]bool {
	snapshot := make(map[Permission]bool, len(AllPermissions))
	for _, p := range AllPermissions {
		snapshot[p] = r.HasPermission(p)
	}
	return snapshot
}
