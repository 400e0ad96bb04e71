// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// access.go provides a Valkey-backed cache of resolved category access
// sets. Resolving the accessible set for a role walks the category tree,
// so the result is cached per role and invalidated whenever roles or the
// category tree change.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// accessKeyPrefix is the Valkey key prefix for cached access sets.
	accessKeyPrefix = "access:role:"

	// DefaultAccessTTL is how long a resolved access set stays cached.
	DefaultAccessTTL = 5 * time.Minute
)

// AccessSet is the cached resolution result for one role. All set means
// the role is unrestricted and IDs is irrelevant.
type AccessSet struct {
	All bool    `json:"all"`
	IDs []int64 `json:"ids,omitempty"`
}

// AccessCache manages per-role category access sets in Valkey.
type AccessCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAccessCache creates an access cache backed by the given Valkey client.
func NewAccessCache(client *redis.Client, ttl time.Duration) *AccessCache {
	if ttl == 0 {
		ttl = DefaultAccessTTL
	}
	return &AccessCache{client: client, ttl: ttl}
}

func accessKey(roleID int64) string {
	return fmt.Sprintf("%s%d", accessKeyPrefix, roleID)
}

// Get retrieves the cached access set for a role. Returns false on miss
// or any cache error; callers fall back to resolving from the database.
func (ac *AccessCache) Get(ctx context.Context, roleID int64) (AccessSet, bool) {
	val, err := ac.client.Get(ctx, accessKey(roleID)).Bytes()
	if err == redis.Nil {
		return AccessSet{}, false
	}
	if err != nil {
		slog.Warn("access cache get error", "role_id", roleID, "error", err)
		return AccessSet{}, false
	}
	var set AccessSet
	if err := json.Unmarshal(val, &set); err != nil {
		slog.Warn("access cache decode error", "role_id", roleID, "error", err)
		return AccessSet{}, false
	}
	slog.Debug("access cache hit", "role_id", roleID)
	return set, true
}

// Set stores the resolved access set for a role with the configured TTL.
func (ac *AccessCache) Set(ctx context.Context, roleID int64, set AccessSet) {
	val, err := json.Marshal(set)
	if err != nil {
		slog.Warn("access cache encode error", "role_id", roleID, "error", err)
		return
	}
	if err := ac.client.Set(ctx, accessKey(roleID), val, ac.ttl).Err(); err != nil {
		slog.Warn("access cache set error", "role_id", roleID, "error", err)
	}
}

// InvalidateRole removes the cached set for a single role, used after
// editing that role's permissions or category grants.
func (ac *AccessCache) InvalidateRole(ctx context.Context, roleID int64) {
	if err := ac.client.Del(ctx, accessKey(roleID)).Err(); err != nil {
		slog.Warn("access cache invalidate error", "role_id", roleID, "error", err)
	}
	slog.Debug("access cache invalidated", "role_id", roleID)
}

// InvalidateAll removes every cached access set by scanning for the
// prefix. Used when the category tree changes, since any role's set
// could be affected.
func (ac *AccessCache) InvalidateAll(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := ac.client.Scan(ctx, cursor, accessKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("access cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := ac.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("access cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("access cache fully cleared", "deleted", deleted)
	}
}
