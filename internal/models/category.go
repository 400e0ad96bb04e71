// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strconv"
	"strings"
	"time"
)

// PathSeparator joins category ids inside a materialized path.
// A path lists the ancestor chain down to the node itself, e.g. "/3/7/12".
const PathSeparator = "/"

// Category represents a node in the hierarchical classification tree that
// materials belong to. The materialized path encodes the full ancestor
// chain by id so descendant and ancestor lookups never need recursion.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id"`
	Path      string    `json:"path"`
	Level     int       `json:"level"`
	SortOrder int       `json:"sort_order"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Children is populated by tree-building store methods.
	Children []Category `json:"children,omitempty"`
}

// ChildPath returns the materialized path for a node with the given id
// placed under parentPath. An empty parentPath produces a root path.
func ChildPath(parentPath string, id int64) string {
	return parentPath + PathSeparator + strconv.FormatInt(id, 10)
}

// AncestorIDs parses a materialized path into the id sequence it encodes,
// from root down to the node itself. Empty and non-numeric segments are
// skipped, so a malformed path degrades to a shorter chain instead of an
// error. This is the single place the path format is interpreted.
func AncestorIDs(path string) []int64 {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, PathSeparator)
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// AncestorIDs returns the id chain encoded in the category's own path,
// including the category's id as the last element.
func (c *Category) AncestorIDs() []int64 {
	return AncestorIDs(c.Path)
}

// IsDescendantOf reports whether the category sits strictly below the
// given ancestor path. The separator acts as a boundary so "/12" never
// matches "/120".
func (c *Category) IsDescendantOf(ancestorPath string) bool {
	return ancestorPath != "" && strings.HasPrefix(c.Path, ancestorPath+PathSeparator)
}
