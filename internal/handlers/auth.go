// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"mediaportal/internal/middleware"
	"mediaportal/internal/session"
	"mediaportal/internal/store"
)

// totpIssuer is the issuer name shown in authenticator apps.
const totpIssuer = "MediaPortal"

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions *session.Store
	users    *store.UserStore
	roles    *store.RoleStore
	audit    *store.AuditStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions *session.Store, users *store.UserStore, roles *store.RoleStore, audit *store.AuditStore) *Auth {
	return &Auth{sessions: sessions, users: users, roles: roles, audit: audit}
}

// Login processes the login form. On valid credentials it creates a
// session with 2FA still pending and tells the client which 2FA step
// comes next.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	login := r.FormValue("login")
	password := r.FormValue("password")

	user, err := a.users.FindByLogin(login)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	if user == nil || !a.users.CheckPassword(user, password) {
		a.audit.Record(nil, "login.failed", "user", "", "login "+login)
		writeError(w, http.StatusUnauthorized, "Invalid login or password.")
		return
	}

	// Create a session. TwoFADone starts as false — the user must
	// complete 2FA before reaching any protected route.
	_, err = a.sessions.Create(r.Context(), w, &session.Data{
		UserID:      user.ID,
		Login:       user.Login,
		DisplayName: user.DisplayName,
		RoleID:      user.RoleID,
		TwoFADone:   false,
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"login":           user.Login,
		"display_name":    user.DisplayName,
		"needs_2fa_setup": user.Needs2FASetup(),
	})
}

// TwoFASetup generates a TOTP secret for the logged-in user and returns
// it together with a QR code PNG for authenticator apps.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: sess.Login,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	if err := a.users.SetTOTPSecret(sess.UserID, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"secret":  key.Secret(),
		"qr_png":  base64.StdEncoding.EncodeToString(qrPNG),
		"otp_url": key.URL(),
	})
}

// TwoFAVerify validates the TOTP code and completes authentication.
// On first-time setup a valid code also enables 2FA for the account.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	user, err := a.users.FindByID(sess.UserID)
	if err != nil || user == nil {
		slog.Error("user lookup for 2fa failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	if user.TOTPSecret == "" {
		writeError(w, http.StatusConflict, "Two-factor authentication is not set up.")
		return
	}

	if !totp.Validate(r.FormValue("code"), user.TOTPSecret) {
		a.audit.Record(&user.ID, "2fa.failed", "user", user.ID.String(), "")
		writeError(w, http.StatusUnauthorized, "Invalid code. Please try again.")
		return
	}

	// First successful verification activates 2FA for the account.
	if !user.TOTPEnabled {
		if err := a.users.EnableTOTP(user.ID); err != nil {
			slog.Error("enable totp failed", "error", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
			return
		}
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	if err := a.users.RecordLogin(user.ID); err != nil {
		slog.Warn("record login failed", "error", err)
	}
	a.audit.Record(&user.ID, "login.success", "user", user.ID.String(), "")

	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true})
}

// Logout destroys the session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	a.sessions.Destroy(r.Context(), w, r)
	writeJSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

// Me returns the current session's identity plus the full permission
// snapshot of the user's role, for client bootstrapping. The role is
// loaded fresh so the snapshot reflects edits made since login.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	role, err := a.roles.FindByID(sess.RoleID)
	if err != nil {
		slog.Error("role load for me failed", "role_id", sess.RoleID, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	body := map[string]any{
		"login":        sess.Login,
		"display_name": sess.DisplayName,
		"role_id":      sess.RoleID,
		"two_fa_done":  sess.TwoFADone,
	}
	if role != nil {
		body["permissions"] = role.Permissions()
		body["is_admin"] = role.IsAdmin
		body["category_access_type"] = role.CategoryAccessType
	}
	writeJSON(w, http.StatusOK, body)
}
