package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for anyone who talks to the helpdesk,
// including agents who work tickets. Agents carry RoleAgent and a
// department; plain employees carry neither.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Roles        []Role
	DepartmentID *string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether any of the user's roles grants unrestricted
// access.
func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if IsAdminRole(r) {
			return true
		}
	}
	return false
}
