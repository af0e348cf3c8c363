package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-kit/triage-service/internal/config"
	"github.com/helpdesk-kit/triage-service/internal/domain"
	"github.com/helpdesk-kit/triage-service/internal/repository"
	apperrors "github.com/helpdesk-kit/triage-service/pkg/util"
)

// Service coordinates registration and login flows.
type Service struct {
	users      repository.UserRepository
	tokenMgr   *TokenManager
	bcryptCost int
}

// NewService builds the service.
func NewService(cfg config.Config, users repository.UserRepository) *Service {
	return &Service{
		users:      users,
		tokenMgr:   NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// RegisterInput carries the attributes of a new account. Roles default
// to EMPLOYEE when empty.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Roles        []string
	DepartmentID *string
}

// Register creates a new account and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, string, time.Time, error) {
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, "", time.Time{}, apperrors.NewValidationError("email already registered", map[string]any{"email": in.Email})
	} else if err != pgx.ErrNoRows {
		return nil, "", time.Time{}, err
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	roles := domain.NormalizeRoles(in.Roles)
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleEmployee}
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        roles,
		DepartmentID: in.DepartmentID,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account suspended")
	}
	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *Service) TokenManager() *TokenManager {
	return s.tokenMgr
}
