// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediaportal/internal/models"
)

// Category mutation guards. Handlers map these onto 4xx responses.
var (
	// ErrHasChildren is returned when deleting a category that still has
	// active child categories.
	ErrHasChildren = errors.New("category has active child categories")

	// ErrHasMaterials is returned when deleting a category that still has
	// active materials attached.
	ErrHasMaterials = errors.New("category has active materials")

	// ErrParentNotFound is returned when a create or move references a
	// parent category that does not exist.
	ErrParentNotFound = errors.New("parent category not found")

	// ErrCyclicMove is returned when a move would place a category under
	// itself or one of its own descendants.
	ErrCyclicMove = errors.New("cannot move a category under its own subtree")
)

// CategoryStore manages the category tree in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, name, parent_id, path, level, sort_order, is_active, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.ParentID, &c.Path, &c.Level,
		&c.SortOrder, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// collectCategories drains a result set into a slice.
func collectCategories(rows *sql.Rows) ([]models.Category, error) {
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a category by ID regardless of its active flag.
// Returns nil if not found.
func (s *CategoryStore) FindByID(id int64) (*models.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// ListActive returns all active categories ordered by (level, sort_order,
// name) — the traversal order the tree builder expects.
func (s *CategoryStore) ListActive() ([]models.Category, error) {
	rows, err := s.db.Query(`
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE is_active = TRUE
		ORDER BY level, sort_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list active categories: %w", err)
	}
	return collectCategories(rows)
}

// Tree returns the active categories assembled into a forest. A node
// whose parent is missing from the active set is promoted to a forest
// root rather than dropped — deactivating a parent must not make its
// subtree unreachable in listings.
func (s *CategoryStore) Tree() ([]models.Category, error) {
	flat, err := s.ListActive()
	if err != nil {
		return nil, err
	}
	return buildForest(flat), nil
}

// BuildTree links an already-filtered flat category slice into
// parent/child form, for callers that narrowed the set first (for
// example to a role's accessible categories). Input order should be
// (level, sort_order, name).
func BuildTree(flat []models.Category) []models.Category {
	return buildForest(flat)
}

// buildForest links a flat (level, sort_order, name)-ordered slice into
// parent/child form. Orphans become extra roots.
func buildForest(flat []models.Category) []models.Category {
	present := make(map[int64]bool, len(flat))
	for _, c := range flat {
		present[c.ID] = true
	}

	byParent := make(map[int64][]models.Category)
	var roots []models.Category
	for _, c := range flat {
		c.Children = nil
		if c.ParentID == nil || !present[*c.ParentID] {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}

	var attach func(c models.Category) models.Category
	attach = func(c models.Category) models.Category {
		for _, k := range byParent[c.ID] {
			c.Children = append(c.Children, attach(k))
		}
		return c
	}

	out := make([]models.Category, 0, len(roots))
	for _, r := range roots {
		out = append(out, attach(r))
	}
	return out
}

// Descendants returns every category whose path sits strictly below the
// given category's path, active or not. The separator boundary in the
// LIKE pattern keeps id 12 from matching id 120. Returns empty when the
// category does not exist.
func (s *CategoryStore) Descendants(id int64) ([]models.Category, error) {
	c, err := s.FindByID(id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Path == "" {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT `+categoryColumns+`
		FROM categories
		WHERE path LIKE $1
		ORDER BY path
	`, c.Path+models.PathSeparator+"%")
	if err != nil {
		return nil, fmt.Errorf("list descendants: %w", err)
	}
	return collectCategories(rows)
}

// ActiveDescendants is Descendants restricted to active rows. The access
// resolver uses this form when expanding grants into the effective set.
func (s *CategoryStore) ActiveDescendants(id int64) ([]models.Category, error) {
	c, err := s.FindByID(id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Path == "" {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT `+categoryColumns+`
		FROM categories
		WHERE path LIKE $1 AND is_active = TRUE
		ORDER BY path
	`, c.Path+models.PathSeparator+"%")
	if err != nil {
		return nil, fmt.Errorf("list active descendants: %w", err)
	}
	return collectCategories(rows)
}

// Create inserts a new category. The materialized path needs the row's
// own id, which is unknown before insert, so the write is two-phase
// inside one transaction: insert, then persist the computed path.
func (s *CategoryStore) Create(c *models.Category) (*models.Category, error) {
	var parentPath string
	level := 0
	if c.ParentID != nil {
		parent, err := s.FindByID(*c.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrParentNotFound
		}
		parentPath = parent.Path
		level = parent.Level + 1
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(`
		INSERT INTO categories (name, parent_id, path, level, sort_order, is_active)
		VALUES ($1, $2, '', $3, $4, TRUE)
		RETURNING id
	`, c.Name, c.ParentID, level, c.SortOrder).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	path := models.ChildPath(parentPath, id)
	row := tx.QueryRow(`
		UPDATE categories SET path = $1 WHERE id = $2
		RETURNING `+categoryColumns,
		path, id,
	)
	created, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("persist category path: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}
	return created, nil
}

// Update modifies a category's name and sort order. Parent changes go
// through Move so path and level stay consistent.
func (s *CategoryStore) Update(c *models.Category) error {
	_, err := s.db.Exec(`
		UPDATE categories SET name = $1, sort_order = $2, updated_at = NOW()
		WHERE id = $3
	`, c.Name, c.SortOrder, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Move re-parents a category and rewrites the materialized path and level
// of the node and its entire subtree in one transaction. Without the
// subtree rewrite, descendant paths would go stale and corrupt both
// prefix queries and the cascading access check.
func (s *CategoryStore) Move(id int64, newParentID *int64) (*models.Category, error) {
	node, err := s.FindByID(id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, sql.ErrNoRows
	}

	var parentPath string
	newLevel := 0
	if newParentID != nil {
		if *newParentID == id {
			return nil, ErrCyclicMove
		}
		parent, err := s.FindByID(*newParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrParentNotFound
		}
		if parent.IsDescendantOf(node.Path) {
			return nil, ErrCyclicMove
		}
		parentPath = parent.Path
		newLevel = parent.Level + 1
	}

	oldPath := node.Path
	newPath := models.ChildPath(parentPath, id)
	levelDelta := newLevel - node.Level

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		UPDATE categories
		SET parent_id = $1, path = $2, level = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+categoryColumns,
		newParentID, newPath, newLevel, id,
	)
	moved, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("move category: %w", err)
	}

	// Prefix-substitute every descendant path and shift their levels.
	_, err = tx.Exec(`
		UPDATE categories
		SET path = $1 || substr(path, $2),
		    level = level + $3,
		    updated_at = NOW()
		WHERE path LIKE $4
	`, newPath, len(oldPath)+1, levelDelta, oldPath+models.PathSeparator+"%")
	if err != nil {
		return nil, fmt.Errorf("move subtree: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit move: %w", err)
	}
	return moved, nil
}

// SetActive toggles the soft-delete flag on a single category.
func (s *CategoryStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(`
		UPDATE categories SET is_active = $1, updated_at = NOW() WHERE id = $2
	`, active, id)
	if err != nil {
		return fmt.Errorf("set category active: %w", err)
	}
	return nil
}

// Delete removes a category once nothing depends on it: active children
// block with ErrHasChildren, active materials with ErrHasMaterials.
func (s *CategoryStore) Delete(id int64) error {
	var children int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM categories WHERE parent_id = $1 AND is_active = TRUE
	`, id).Scan(&children)
	if err != nil {
		return fmt.Errorf("count child categories: %w", err)
	}
	if children > 0 {
		return ErrHasChildren
	}

	var materials int
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM materials WHERE category_id = $1 AND is_active = TRUE
	`, id).Scan(&materials)
	if err != nil {
		return fmt.Errorf("count category materials: %w", err)
	}
	if materials > 0 {
		return ErrHasMaterials
	}

	if _, err := s.db.Exec(`DELETE FROM categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// ReorderItem represents a single item in a reorder request.
type ReorderItem struct {
	ID    int64 `json:"id"`
	Order int   `json:"order"`
}

// Reorder updates sort_order for multiple categories in a transaction.
func (s *CategoryStore) Reorder(items []ReorderItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		UPDATE categories SET sort_order = $1, updated_at = $2 WHERE id = $3`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, item := range items {
		if _, err := stmt.Exec(item.Order, now, item.ID); err != nil {
			return fmt.Errorf("reorder category %d: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

// NextSortOrder returns the next sort_order value for a given parent.
func (s *CategoryStore) NextSortOrder(parentID *int64) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	if parentID == nil {
		err = s.db.QueryRow(`SELECT MAX(sort_order) FROM categories WHERE parent_id IS NULL`).Scan(&maxOrder)
	} else {
		err = s.db.QueryRow(`SELECT MAX(sort_order) FROM categories WHERE parent_id = $1`, *parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, err
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}
