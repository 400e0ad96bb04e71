package database

import (
	"testing"
)

func TestSeedIdempotent(t *testing.T) {
	db, err := Connect(testDSN())
	if err != nil {
		t.Skipf("skipping: DB not available: %v", err)
	}
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	// Seed should be callable safely — it creates data only when the users
	// table is empty. We call it twice to verify idempotency. We don't
	// clear the database first because other test packages may be running
	// concurrently against the same database.
	if err := Seed(db); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := Seed(db); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	// Verify admin user exists.
	var userCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE login = 'admin'").Scan(&userCount); err != nil {
		t.Fatalf("count admin users: %v", err)
	}
	if userCount < 1 {
		t.Errorf("expected at least 1 admin user, got %d", userCount)
	}

	// Verify the admin role exists and bypasses permission checks.
	var isAdmin bool
	err = db.QueryRow(`
		SELECT r.is_admin FROM roles r
		JOIN users u ON u.role_id = r.id
		WHERE u.login = 'admin'
	`).Scan(&isAdmin)
	if err != nil {
		t.Fatalf("query admin role: %v", err)
	}
	if !isAdmin {
		t.Error("seeded admin user should belong to an is_admin role")
	}
}
