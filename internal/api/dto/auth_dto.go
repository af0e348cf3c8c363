package dto

import (
	"time"

	"github.com/helpdesk-kit/triage-service/internal/domain"
)

// RegisterRequest payload for new accounts. Roles and department are
// optional and default to a plain employee.
type RegisterRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Roles        []string `json:"roles,omitempty"`
	DepartmentID *string  `json:"department_id,omitempty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Roles        []domain.Role     `json:"roles"`
	DepartmentID *string           `json:"department_id,omitempty"`
	Status       domain.UserStatus `json:"status"`
}

// AccessProfileResponse echoes the retrieval permissions derived from
// the caller's verified context.
type AccessProfileResponse struct {
	UserID            string   `json:"user_id"`
	Roles             []string `json:"roles"`
	Department        string   `json:"department,omitempty"`
	Verified          bool     `json:"verified"`
	Admin             bool     `json:"admin"`
	AllowedVisibility []string `json:"allowed_visibility"`
}
