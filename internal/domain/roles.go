package domain

import "strings"

// Role is a normalized (uppercase) role name attached to a user.
type Role string

const (
	RoleEmployee     Role = "EMPLOYEE"
	RoleAgent        Role = "AGENT"
	RoleHRSpecialist Role = "HR_SPECIALIST"
	RoleHRManager    Role = "HR_MANAGER"
	RoleAdmin        Role = "ADMIN"
	RoleSuperAdmin   Role = "SUPERADMIN"
)

// NormalizeRole uppercases and trims a raw role string so comparisons
// never depend on how the identity provider cased it.
func NormalizeRole(raw string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(raw)))
}

// NormalizeRoles maps NormalizeRole over a raw role list, dropping
// empty entries.
func NormalizeRoles(raw []string) []Role {
	roles := make([]Role, 0, len(raw))
	for _, r := range raw {
		role := NormalizeRole(r)
		if role == "" {
			continue
		}
		roles = append(roles, role)
	}
	return roles
}

// IsAdminRole reports whether the role grants unrestricted access.
func IsAdminRole(r Role) bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}
