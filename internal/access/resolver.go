// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package access implements category access resolution: translating a
// role's explicit category grants into point decisions ("may this role
// touch category X?") and the full effective set of reachable
// categories. Grants cascade — access to a category implies access to
// its whole subtree — and the model is grant-only: there is no deny
// concept and no overrides.
package access

import (
	"mediaportal/internal/models"
)

// CategoryFinder is the category lookup surface the resolver needs.
// *store.CategoryStore satisfies it; tests inject an in-memory fake.
type CategoryFinder interface {
	// FindByID returns a category regardless of its active flag, or nil
	// when the id is unknown.
	FindByID(id int64) (*models.Category, error)

	// ActiveDescendants returns the active categories strictly below the
	// given category, ordered by path.
	ActiveDescendants(id int64) ([]models.Category, error)

	// ListActive returns every active category.
	ListActive() ([]models.Category, error)
}

// Resolver answers category access queries for fully hydrated roles.
// It holds no mutable state; all methods are read-only and safe for
// concurrent use.
type Resolver struct {
	categories CategoryFinder
}

// NewResolver creates a resolver backed by the given category lookup.
func NewResolver(categories CategoryFinder) *Resolver {
	return &Resolver{categories: categories}
}

// HasCategoryAccess reports whether the role may touch the category.
// The role must arrive with its grants hydrated (stores guarantee this).
//
// The cascade is answered from the target side: instead of expanding
// every grant into its descendant set, the target's own materialized
// path supplies its ancestor chain, and one chain/grant intersection
// decides. A deactivated ancestor still counts here — deactivation
// hides categories from listings but does not revoke granted subtrees.
func (r *Resolver) HasCategoryAccess(role *models.Role, categoryID int64) (bool, error) {
	if role.IsAdmin || role.CanManageAllCategories {
		return true, nil
	}
	if len(role.AllowedCategoryIDs) == 0 {
		return false, nil
	}

	granted := make(map[int64]bool, len(role.AllowedCategoryIDs))
	for _, id := range role.AllowedCategoryIDs {
		granted[id] = true
	}
	if granted[categoryID] {
		return true, nil
	}

	target, err := r.categories.FindByID(categoryID)
	if err != nil {
		return false, err
	}
	if target == nil || target.Path == "" {
		return false, nil
	}

	for _, ancestorID := range target.AncestorIDs() {
		if granted[ancestorID] {
			return true, nil
		}
	}
	return false, nil
}

// AccessibleCategories computes the effective access set: every active
// category the role can reach after cascading its grants. Categories
// reachable through multiple grants appear once.
func (r *Resolver) AccessibleCategories(role *models.Role) ([]models.Category, error) {
	if role.IsAdmin || role.CanManageAllCategories {
		return r.categories.ListActive()
	}
	if len(role.AllowedCategoryIDs) == 0 {
		return nil, nil
	}

	seen := make(map[int64]bool)
	var result []models.Category

	add := func(c models.Category) {
		if !seen[c.ID] {
			seen[c.ID] = true
			result = append(result, c)
		}
	}

	for _, grantedID := range role.AllowedCategoryIDs {
		granted, err := r.categories.FindByID(grantedID)
		if err != nil {
			return nil, err
		}
		// A grant pointing at a deleted category contributes nothing; a
		// deactivated one is excluded itself but its subtree still counts.
		if granted == nil {
			continue
		}
		if granted.IsActive {
			add(*granted)
		}

		descendants, err := r.categories.ActiveDescendants(grantedID)
		if err != nil {
			return nil, err
		}
		for _, d := range descendants {
			add(d)
		}
	}
	return result, nil
}

// AccessibleCategoryIDs is AccessibleCategories reduced to ids, for use
// as a listing filter.
func (r *Resolver) AccessibleCategoryIDs(role *models.Role) ([]int64, error) {
	categories, err := r.AccessibleCategories(role)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// Unrestricted reports whether the role bypasses category scoping
// entirely, either through the admin override or the blanket
// manage-all-categories flag.
func Unrestricted(role *models.Role) bool {
	return role.IsAdmin || role.CanManageAllCategories
}
