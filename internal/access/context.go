// Package access derives retrieval permissions from a verified user
// context. Everything here is fail-closed: an absent or unverified
// context yields a PermissionError, never a permissive default.
package access

import (
	"strings"
)

// Visibility tiers documents are tagged with.
const (
	VisibilityPublic       = "PUBLIC"
	VisibilityInternal     = "INTERNAL"
	VisibilityConfidential = "CONFIDENTIAL"
)

// Context is the identity retrieval decisions run against. Roles and
// Department are normalized to uppercase on construction; Department
// stays empty when the user has none, which relaxes the department
// clause rather than pinning it to a default.
type Context struct {
	UserID     string
	Roles      []string
	Department string
	Verified   bool
}

// NewContext normalizes and returns a context. Blank roles are dropped.
func NewContext(userID string, roles []string, department string, verified bool) Context {
	normalized := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role != "" {
			normalized = append(normalized, role)
		}
	}
	return Context{
		UserID:     userID,
		Roles:      normalized,
		Department: strings.ToUpper(strings.TrimSpace(department)),
		Verified:   verified,
	}
}

// IsAdmin reports whether the context holds an administrative role.
func (c Context) IsAdmin() bool {
	for _, role := range c.Roles {
		if role == "ADMIN" || role == "SUPERADMIN" {
			return true
		}
	}
	return false
}

// HasRole reports whether the context carries the given role.
func (c Context) HasRole(role string) bool {
	role = strings.ToUpper(role)
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AllowedVisibility returns the visibility tiers the context may read.
// Admins see everything, HR-prefixed roles additionally see INTERNAL,
// everyone else only PUBLIC.
func (c Context) AllowedVisibility() []string {
	if c.IsAdmin() {
		return []string{VisibilityPublic, VisibilityInternal, VisibilityConfidential}
	}
	for _, role := range c.Roles {
		if strings.HasPrefix(role, "HR") {
			return []string{VisibilityPublic, VisibilityInternal}
		}
	}
	return []string{VisibilityPublic}
}
