// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package access

import (
	"context"

	"mediaportal/internal/cache"
	"mediaportal/internal/models"
)

// SetCache stores resolved access sets per role. *cache.AccessCache
// satisfies it; tests inject an in-memory fake.
type SetCache interface {
	Get(ctx context.Context, roleID int64) (cache.AccessSet, bool)
	Set(ctx context.Context, roleID int64, set cache.AccessSet)
}

// CachedResolver layers the Valkey access cache over a Resolver. Point
// checks go straight to the resolver — they cost one row lookup at
// most. The full accessible-id set is the expensive tree expansion, so
// that result is cached per role until the role or the category tree
// changes.
type CachedResolver struct {
	resolver *Resolver
	sets     SetCache
}

// NewCachedResolver wraps the resolver with the given set cache. A nil
// cache yields pass-through behavior.
func NewCachedResolver(resolver *Resolver, sets SetCache) *CachedResolver {
	return &CachedResolver{resolver: resolver, sets: sets}
}

// HasCategoryAccess defers to the underlying resolver.
func (cr *CachedResolver) HasCategoryAccess(role *models.Role, categoryID int64) (bool, error) {
	return cr.resolver.HasCategoryAccess(role, categoryID)
}

// AccessibleCategoryIDs returns the cached id set when present, and
// resolves then caches on a miss.
func (cr *CachedResolver) AccessibleCategoryIDs(role *models.Role) ([]int64, error) {
	if cr.sets == nil || Unrestricted(role) {
		// Unrestricted roles resolve straight from the active tree, a
		// single indexed query. Not worth a cache entry.
		return cr.resolver.AccessibleCategoryIDs(role)
	}

	ctx := context.Background()
	if set, ok := cr.sets.Get(ctx, role.ID); ok && !set.All {
		return set.IDs, nil
	}

	ids, err := cr.resolver.AccessibleCategoryIDs(role)
	if err != nil {
		return nil, err
	}
	cr.sets.Set(ctx, role.ID, cache.AccessSet{IDs: ids})
	return ids, nil
}
