// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"mediaportal/internal/access"
	"mediaportal/internal/cache"
	"mediaportal/internal/database"
	"mediaportal/internal/middleware"
	"mediaportal/internal/models"
	"mediaportal/internal/session"
	"mediaportal/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "mediaportal")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "mediaportal")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test session and access cache keys.
		for _, pattern := range []string{"session:*", "access:role:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB          *sql.DB
	Valkey      *redis.Client
	Sessions    *session.Store
	UserStore   *store.UserStore
	RoleStore   *store.RoleStore
	CatStore    *store.CategoryStore
	MatStore    *store.MaterialStore
	AuditStore  *store.AuditStore
	Resolver    *access.Resolver
	AccessCache *cache.AccessCache

	Auth       *Auth
	Categories *Categories
	Materials  *Materials
	Users      *Users
	Roles      *Roles
	Logs       *Logs
}

// newTestEnv creates a complete test environment with all handler dependencies.
// Material handlers get no storage client; upload paths answer 503 in tests.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	sessions := session.NewStore(vk, false)
	userStore := store.NewUserStore(db)
	roleStore := store.NewRoleStore(db)
	catStore := store.NewCategoryStore(db)
	matStore := store.NewMaterialStore(db)
	auditStore := store.NewAuditStore(db)
	resolver := access.NewResolver(catStore)
	accessCache := cache.NewAccessCache(vk, cache.DefaultAccessTTL)

	return &testEnv{
		DB:          db,
		Valkey:      vk,
		Sessions:    sessions,
		UserStore:   userStore,
		RoleStore:   roleStore,
		CatStore:    catStore,
		MatStore:    matStore,
		AuditStore:  auditStore,
		Resolver:    resolver,
		AccessCache: accessCache,

		Auth:       NewAuth(sessions, userStore, roleStore, auditStore),
		Categories: NewCategories(catStore, resolver, auditStore, accessCache),
		Materials:  NewMaterials(matStore, resolver, nil, auditStore),
		Users:      NewUsers(userStore, roleStore, auditStore),
		Roles:      NewRoles(roleStore, catStore, auditStore, accessCache),
		Logs:       NewLogs(auditStore),
	}
}

// testRole creates a role for handler tests, cleaned up by name afterwards.
func testRole(t *testing.T, env *testEnv, name string, mutate func(*models.Role)) *models.Role {
	t.Helper()

	role := &models.Role{
		Name:               name,
		CategoryAccessType: models.CategoryAccessAll,
	}
	if mutate != nil {
		mutate(role)
	}

	env.DB.Exec("DELETE FROM users WHERE role_id IN (SELECT id FROM roles WHERE name = $1)", name)
	env.DB.Exec("DELETE FROM roles WHERE name = $1", name)

	created, err := env.RoleStore.Create(role)
	if err != nil {
		t.Fatalf("create role %q: %v", name, err)
	}
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM users WHERE role_id = $1", created.ID)
		env.DB.Exec("DELETE FROM roles WHERE id = $1", created.ID)
	})
	return created
}

// testUser creates a user for handler tests, cleaned up by login afterwards.
func testUser(t *testing.T, env *testEnv, login, password string, roleID int64) *models.User {
	t.Helper()

	env.DB.Exec("DELETE FROM users WHERE login = $1", login)
	user, err := env.UserStore.Create(login, password, "Test User", roleID)
	if err != nil {
		t.Fatalf("create user %q: %v", login, err)
	}
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM users WHERE id = $1", user.ID)
	})
	return user
}

// testCategory creates a category, cleaned up afterwards.
func testCategory(t *testing.T, env *testEnv, name string, parentID *int64) *models.Category {
	t.Helper()

	order, err := env.CatStore.NextSortOrder(parentID)
	if err != nil {
		t.Fatalf("next sort order: %v", err)
	}
	c, err := env.CatStore.Create(&models.Category{
		Name:      name,
		ParentID:  parentID,
		SortOrder: order,
	})
	if err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM materials WHERE category_id = $1", c.ID)
		env.DB.Exec("DELETE FROM categories WHERE id = $1", c.ID)
	})
	return c
}

// formRequest builds a POST/PUT request with form-encoded values.
func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// withSession attaches session data to a request context.
func withSession(r *http.Request, sess *session.Data) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.SessionKey, sess))
}

// withRole attaches a hydrated role, as the permission middleware would.
func withRole(r *http.Request, role *models.Role) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.RoleKey, role))
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// sessionFor builds session data for an existing user.
func sessionFor(user *models.User, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:      user.ID,
		Login:       user.Login,
		DisplayName: user.DisplayName,
		RoleID:      user.RoleID,
		TwoFADone:   twoFADone,
	}
}
