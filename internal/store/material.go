// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"mediaportal/internal/models"
)

// MaterialStore handles all material-related database operations.
type MaterialStore struct {
	db *sql.DB
}

// NewMaterialStore creates a new MaterialStore with the given database connection.
func NewMaterialStore(db *sql.DB) *MaterialStore {
	return &MaterialStore{db: db}
}

const materialColumns = `id, category_id, name, file_type, object_key,
	content_type, size_bytes, is_active, created_by, created_at, updated_at`

// scanMaterial scans a material row from the result set.
func scanMaterial(scanner interface{ Scan(...any) error }) (*models.Material, error) {
	var m models.Material
	err := scanner.Scan(
		&m.ID, &m.CategoryID, &m.Name, &m.FileType, &m.ObjectKey,
		&m.ContentType, &m.SizeBytes, &m.IsActive, &m.CreatedBy,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new material record and returns it with the generated ID.
func (s *MaterialStore) Create(m *models.Material) (*models.Material, error) {
	row := s.db.QueryRow(`
		INSERT INTO materials (category_id, name, file_type, object_key,
			content_type, size_bytes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+materialColumns,
		m.CategoryID, m.Name, m.FileType, m.ObjectKey,
		m.ContentType, m.SizeBytes, m.CreatedBy,
	)
	created, err := scanMaterial(row)
	if err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}
	return created, nil
}

// FindByID retrieves a single material by id. Returns nil if not found.
func (s *MaterialStore) FindByID(id int64) (*models.Material, error) {
	row := s.db.QueryRow(`SELECT `+materialColumns+` FROM materials WHERE id = $1`, id)
	m, err := scanMaterial(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find material by id: %w", err)
	}
	return m, nil
}

// ListAll returns active materials across every category, newest first.
// Used for roles with unrestricted category scope.
func (s *MaterialStore) ListAll(limit, offset int) ([]models.Material, error) {
	rows, err := s.db.Query(`
		SELECT `+materialColumns+`
		FROM materials
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return collectMaterials(rows)
}

// ListByCategories returns active materials restricted to the given
// category ids — the effective access set computed by the resolver. An
// empty id list yields no rows, never all rows.
func (s *MaterialStore) ListByCategories(categoryIDs []int64, limit, offset int) ([]models.Material, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	// The pgx stdlib driver binds []int64 to a bigint[] parameter.
	rows, err := s.db.Query(`
		SELECT `+materialColumns+`
		FROM materials
		WHERE is_active = TRUE AND category_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, categoryIDs, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list materials by category: %w", err)
	}
	return collectMaterials(rows)
}

// collectMaterials drains a result set into a slice.
func collectMaterials(rows *sql.Rows) ([]models.Material, error) {
	defer rows.Close()

	var items []models.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

// Update modifies a material's name and category assignment.
func (s *MaterialStore) Update(m *models.Material) error {
	_, err := s.db.Exec(`
		UPDATE materials SET name = $1, category_id = $2, updated_at = NOW()
		WHERE id = $3
	`, m.Name, m.CategoryID, m.ID)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return nil
}

// SetActive toggles the soft-delete flag on a material.
func (s *MaterialStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(`
		UPDATE materials SET is_active = $1, updated_at = NOW() WHERE id = $2
	`, active, id)
	if err != nil {
		return fmt.Errorf("set material active: %w", err)
	}
	return nil
}

// Delete removes a material row. The object in storage is the caller's
// responsibility.
func (s *MaterialStore) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM materials WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}

// CountActiveByCategory returns the number of active materials in one category.
func (s *MaterialStore) CountActiveByCategory(categoryID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM materials WHERE category_id = $1 AND is_active = TRUE
	`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count materials: %w", err)
	}
	return n, nil
}
