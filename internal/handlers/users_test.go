// users_test.go contains handler integration tests for user
// administration: creation with role validation, login uniqueness, and
// the self-deletion guard.
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"mediaportal/internal/models"
)

func TestUsersCreate(t *testing.T) {
	env := newTestEnv(t)

	role := testRole(t, env, "user-handler-role", nil)

	form := url.Values{}
	form.Set("login", "user-handler-new")
	form.Set("display_name", "New Portal User")
	form.Set("password", "long enough password")
	form.Set("role_id", strconv.FormatInt(role.ID, 10))

	env.DB.Exec("DELETE FROM users WHERE login = $1", "user-handler-new")

	rec := httptest.NewRecorder()
	env.Users.Create(rec, formRequest(http.MethodPost, "/api/users", form))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var created models.User
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	t.Cleanup(func() { env.DB.Exec("DELETE FROM users WHERE id = $1", created.ID) })

	if created.Login != "user-handler-new" || created.RoleID != role.ID {
		t.Errorf("created user: login %q role %d", created.Login, created.RoleID)
	}
}

func TestUsersCreate_DuplicateLogin(t *testing.T) {
	env := newTestEnv(t)

	role := testRole(t, env, "user-handler-dup-role", nil)
	testUser(t, env, "user-handler-dup", "some password", role.ID)

	form := url.Values{}
	form.Set("login", "user-handler-dup")
	form.Set("display_name", "Second Of The Name")
	form.Set("password", "another password")
	form.Set("role_id", strconv.FormatInt(role.ID, 10))

	rec := httptest.NewRecorder()
	env.Users.Create(rec, formRequest(http.MethodPost, "/api/users", form))

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestUsersCreate_UnknownRole(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{}
	form.Set("login", "user-handler-norole")
	form.Set("display_name", "Roleless")
	form.Set("password", "some long password")
	form.Set("role_id", "999999999")

	rec := httptest.NewRecorder()
	env.Users.Create(rec, formRequest(http.MethodPost, "/api/users", form))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestUsersDelete_SelfDeletionRejected(t *testing.T) {
	env := newTestEnv(t)

	role := testRole(t, env, "user-handler-self-role", nil)
	user := testUser(t, env, "user-handler-self", "some password", role.ID)

	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/users/0", nil), sessionFor(user, true))
	req = withChiURLParam(req, "userID", user.ID.String())
	rec := httptest.NewRecorder()
	env.Users.Delete(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestUsersResetTOTP(t *testing.T) {
	env := newTestEnv(t)

	adminRole := testRole(t, env, "user-handler-reset-admin", func(r *models.Role) { r.IsAdmin = true })
	admin := testUser(t, env, "user-handler-reset-by", "some password", adminRole.ID)

	role := testRole(t, env, "user-handler-reset-role", nil)
	user := testUser(t, env, "user-handler-reset", "some password", role.ID)
	if err := env.UserStore.SetTOTPSecret(user.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("set secret: %v", err)
	}
	if err := env.UserStore.EnableTOTP(user.ID); err != nil {
		t.Fatalf("enable totp: %v", err)
	}

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/users/0/reset-2fa", nil), sessionFor(admin, true))
	req = withChiURLParam(req, "userID", user.ID.String())
	rec := httptest.NewRecorder()
	env.Users.ResetTOTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	reloaded, err := env.UserStore.FindByID(user.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.TOTPEnabled || reloaded.TOTPSecret != "" {
		t.Error("2FA enrollment not cleared")
	}
	if !reloaded.Needs2FASetup() {
		t.Error("user should need 2FA setup after reset")
	}
}
