package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data.
// It creates an Administrators role and a default admin user if no users
// exist. The admin will be prompted to set up 2FA on first login
// (totp_enabled = false).
func Seed(db *sql.DB) error {
	// Check if any users exist already.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	// Ensure the Administrators role exists. is_admin bypasses all
	// permission and category checks, so no flags need to be set.
	var roleID int64
	err := db.QueryRow(`
		INSERT INTO roles (name, description, is_admin)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (name) DO UPDATE SET is_admin = TRUE
		RETURNING id
	`, "Administrators", "Full access to the portal").Scan(&roleID)
	if err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}

	// Hash the default admin password.
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	// Insert default admin user. 2FA is not enabled — they must set it up
	// on first login.
	_, err = db.Exec(`
		INSERT INTO users (login, password_hash, display_name, role_id, totp_enabled)
		VALUES ($1, $2, $3, $4, $5)
	`, "admin", string(hash), "Admin", roleID, false)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"login", "admin",
		"password", "admin",
	)

	return nil
}
