// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"errors"
	"fmt"

	"mediaportal/internal/models"
)

// ErrRoleInUse is returned when deleting a role that users still reference.
var ErrRoleInUse = errors.New("role is still assigned to users")

// RoleStore handles all role-related database operations. Every fetch
// hydrates the explicit category grants so callers always work with a
// complete role value — there is no lazy reload path.
type RoleStore struct {
	db *sql.DB
}

// NewRoleStore creates a new RoleStore with the given database connection.
func NewRoleStore(db *sql.DB) *RoleStore {
	return &RoleStore{db: db}
}

const roleColumns = `id, name, description, is_admin, category_access_type,
	can_view_materials, can_download_materials, can_create_materials,
	can_edit_materials, can_delete_materials,
	can_create_categories, can_edit_categories, can_delete_categories,
	can_manage_all_categories,
	can_view_users, can_create_users, can_edit_users, can_delete_users,
	can_view_logs, can_manage_roles,
	created_at, updated_at`

// scanRole scans a role row from the result set.
func scanRole(scanner interface{ Scan(...any) error }) (*models.Role, error) {
	var r models.Role
	err := scanner.Scan(
		&r.ID, &r.Name, &r.Description, &r.IsAdmin, &r.CategoryAccessType,
		&r.CanViewMaterials, &r.CanDownloadMaterials, &r.CanCreateMaterials,
		&r.CanEditMaterials, &r.CanDeleteMaterials,
		&r.CanCreateCategories, &r.CanEditCategories, &r.CanDeleteCategories,
		&r.CanManageAllCategories,
		&r.CanViewUsers, &r.CanCreateUsers, &r.CanEditUsers, &r.CanDeleteUsers,
		&r.CanViewLogs, &r.CanManageRoles,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// roleFlagArgs returns the permission column values in roleColumns order.
func roleFlagArgs(r *models.Role) []any {
	return []any{
		r.CanViewMaterials, r.CanDownloadMaterials, r.CanCreateMaterials,
		r.CanEditMaterials, r.CanDeleteMaterials,
		r.CanCreateCategories, r.CanEditCategories, r.CanDeleteCategories,
		r.CanManageAllCategories,
		r.CanViewUsers, r.CanCreateUsers, r.CanEditUsers, r.CanDeleteUsers,
		r.CanViewLogs, r.CanManageRoles,
	}
}

// FindByID retrieves a role with its category grants. Returns nil if not found.
func (s *RoleStore) FindByID(id int64) (*models.Role, error) {
	row := s.db.QueryRow(`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	r, err := scanRole(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role by id: %w", err)
	}

	if r.AllowedCategoryIDs, err = s.allowedCategoryIDs(id); err != nil {
		return nil, err
	}
	return r, nil
}

// allowedCategoryIDs loads the explicit grant list for a role.
func (s *RoleStore) allowedCategoryIDs(roleID int64) ([]int64, error) {
	rows, err := s.db.Query(`
		SELECT category_id FROM role_categories WHERE role_id = $1 ORDER BY category_id
	`, roleID)
	if err != nil {
		return nil, fmt.Errorf("list role grants: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan role grant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List returns all roles ordered by name, each with its grants hydrated.
func (s *RoleStore) List() ([]models.Role, error) {
	rows, err := s.db.Query(`SELECT ` + roleColumns + ` FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range roles {
		if roles[i].AllowedCategoryIDs, err = s.allowedCategoryIDs(roles[i].ID); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// Create inserts a new role and its category grants in one transaction.
func (s *RoleStore) Create(r *models.Role) (*models.Role, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	args := append([]any{r.Name, r.Description, r.IsAdmin, r.CategoryAccessType}, roleFlagArgs(r)...)
	row := tx.QueryRow(`
		INSERT INTO roles (name, description, is_admin, category_access_type,
			can_view_materials, can_download_materials, can_create_materials,
			can_edit_materials, can_delete_materials,
			can_create_categories, can_edit_categories, can_delete_categories,
			can_manage_all_categories,
			can_view_users, can_create_users, can_edit_users, can_delete_users,
			can_view_logs, can_manage_roles)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19)
		RETURNING `+roleColumns, args...)
	created, err := scanRole(row)
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	if err := replaceGrants(tx, created.ID, r.AllowedCategoryIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create role: %w", err)
	}
	created.AllowedCategoryIDs = append([]int64{}, r.AllowedCategoryIDs...)
	return created, nil
}

// Update modifies a role's fields and replaces its grants atomically.
func (s *RoleStore) Update(r *models.Role) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	args := append([]any{r.Name, r.Description, r.IsAdmin, r.CategoryAccessType}, roleFlagArgs(r)...)
	args = append(args, r.ID)
	_, err = tx.Exec(`
		UPDATE roles SET name = $1, description = $2, is_admin = $3,
			category_access_type = $4,
			can_view_materials = $5, can_download_materials = $6,
			can_create_materials = $7, can_edit_materials = $8,
			can_delete_materials = $9,
			can_create_categories = $10, can_edit_categories = $11,
			can_delete_categories = $12, can_manage_all_categories = $13,
			can_view_users = $14, can_create_users = $15,
			can_edit_users = $16, can_delete_users = $17,
			can_view_logs = $18, can_manage_roles = $19,
			updated_at = NOW()
		WHERE id = $20
	`, args...)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	if err := replaceGrants(tx, r.ID, r.AllowedCategoryIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// SetAllowedCategories replaces a role's explicit grant list.
func (s *RoleStore) SetAllowedCategories(roleID int64, categoryIDs []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceGrants(tx, roleID, categoryIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// replaceGrants rewrites the role_categories rows for a role.
func replaceGrants(tx *sql.Tx, roleID int64, categoryIDs []int64) error {
	if _, err := tx.Exec(`DELETE FROM role_categories WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("clear role grants: %w", err)
	}
	for _, cid := range categoryIDs {
		_, err := tx.Exec(`
			INSERT INTO role_categories (role_id, category_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, roleID, cid)
		if err != nil {
			return fmt.Errorf("insert role grant %d: %w", cid, err)
		}
	}
	return nil
}

// Delete removes a role. Refuses with ErrRoleInUse while any user still
// references it — a user must never be left without a resolvable role.
func (s *RoleStore) Delete(id int64) error {
	var users int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE role_id = $1`, id).Scan(&users); err != nil {
		return fmt.Errorf("count role users: %w", err)
	}
	if users > 0 {
		return ErrRoleInUse
	}

	if _, err := s.db.Exec(`DELETE FROM roles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}
