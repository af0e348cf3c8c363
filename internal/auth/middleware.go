package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-kit/triage-service/internal/access"
	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/repository"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. DepartmentName is the
// resolved label of the user's department, empty when they have none.
type Principal struct {
	User           *domain.User
	DepartmentName string
	Claims         *Claims
}

// AccessContext projects the principal into the retrieval access
// context. Roles and department come from the loaded user row, not the
// token, so revoked grants take effect on the next request.
func (p *Principal) AccessContext() access.Context {
	if p == nil || p.User == nil {
		return access.Context{}
	}
	roles := make([]string, len(p.User.Roles))
	for i, role := range p.User.Roles {
		roles[i] = string(role)
	}
	verified := p.User.Status == domain.UserStatusActive
	return access.NewContext(p.User.ID, roles, p.DepartmentName, verified)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens      *TokenManager
	users       repository.UserRepository
	departments repository.DepartmentRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, departments repository.DepartmentRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, departments: departments}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.Context(), claims.Subject)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if user.Status != domain.UserStatusActive {
		return apperrors.NewUnauthorized("account suspended")
	}

	departmentName := ""
	if user.DepartmentID != nil {
		dept, err := m.departments.GetByID(c.Context(), *user.DepartmentID)
		if err != nil && err != pgx.ErrNoRows {
			return apperrors.MapError(err)
		}
		if err == nil {
			departmentName = dept.Name
		}
	}

	c.Locals(principalKey, &Principal{User: user, DepartmentName: departmentName, Claims: claims})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
