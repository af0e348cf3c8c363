package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-kit/triage-service/internal/domain"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

// RequireAuthenticated ensures a principal was loaded by the auth middleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the principal carries at least one of the allowed
// roles. Admins pass regardless.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.User.IsAdmin() {
			return c.Next()
		}
		for _, role := range allowed {
			if principal.User.HasRole(role) {
				return c.Next()
			}
		}
		return apperrors.NewPermissionDenied("insufficient role")
	}
}

// RequireAdmin restricts a route to admin accounts.
func RequireAdmin() fiber.Handler {
	return RequireRole()
}
