package handlers

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Validation limits for portal entities.
const (
	maxCategoryNameLen = 200
	maxMaterialNameLen = 300
	maxRoleNameLen     = 100
	maxDescriptionLen  = 1_000
	maxLoginLen        = 100
	maxDisplayNameLen  = 200
	minPasswordLen     = 8

	// maxUploadBytes caps material uploads at 2 GiB.
	maxUploadBytes = 2 << 30
)

// validateCategoryName checks category form input and returns the first
// error found, or "" when valid.
func validateCategoryName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Category name is required."
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLen {
		return "Category name is too long (max 200 characters)."
	}
	return ""
}

// validateMaterialName checks a material's display name.
func validateMaterialName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Material name is required."
	}
	if utf8.RuneCountInString(name) > maxMaterialNameLen {
		return "Material name is too long (max 300 characters)."
	}
	return ""
}

// validateRole checks role form inputs.
func validateRole(name, description string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Role name is required."
	}
	if utf8.RuneCountInString(name) > maxRoleNameLen {
		return "Role name is too long (max 100 characters)."
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return "Description is too long (max 1,000 characters)."
	}
	return ""
}

// validateUser checks user form inputs. Password rules apply only when a
// password is being set.
func validateUser(login, displayName string) string {
	login = strings.TrimSpace(login)
	if login == "" {
		return "Login is required."
	}
	if strings.ContainsAny(login, " \t") {
		return "Login must not contain spaces."
	}
	if utf8.RuneCountInString(login) > maxLoginLen {
		return "Login is too long (max 100 characters)."
	}
	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		return "Display name is too long (max 200 characters)."
	}
	return ""
}

// validatePassword checks password strength on create and reset.
func validatePassword(password string) string {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return "Password must be at least 8 characters."
	}
	return ""
}

// parseID parses a decimal entity id from a path or form value.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseOptionalParent reads an optional parent category id. Empty means
// root level.
func parseOptionalParent(raw string) (*int64, bool) {
	if raw == "" {
		return nil, true
	}
	id, ok := parseID(raw)
	if !ok {
		return nil, false
	}
	return &id, true
}
