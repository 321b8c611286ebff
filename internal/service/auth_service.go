package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/config"
	"github.com/command-center/helpdesk/internal/domain"
	"github.com/command-center/helpdesk/internal/repository"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

// AuthService handles registration, login and identity lookup.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// RegisterInput describes a registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// AuthResult is a signed credential plus its account.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Register creates an account and assigns the default scope set for its
// role. Scopes are granted here, at creation time, and only here.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.Name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("valid email required", nil)
	}
	if len(input.Password) < 6 {
		return nil, apperrors.NewValidationError("password must be at least 6 characters", nil)
	}
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if !domain.ValidRole(input.Role) {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("user with this email already exists", nil)
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         input.Role,
		Scopes:       auth.DefaultScopes(input.Role),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}

	return s.issue(user)
}

// Login verifies credentials and issues a token. Accounts that predate
// scoped authorization get their default scope set backfilled here, once,
// explicitly.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated("invalid credentials")
	}

	if auth.BackfillScopes(user) {
		if err := s.users.UpdateScopes(ctx, user.ID, user.Scopes); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	return s.issue(user)
}

// ListUsers returns accounts of one role, for assignment pickers.
func (s *AuthService) ListUsers(ctx context.Context, role domain.Role, limit, offset int) ([]domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	if limit <= 0 {
		limit = 50
	}
	users, err := s.users.ListByRole(ctx, role, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// GetUser loads an account by id. Non-admins may only read their own
// account.
func (s *AuthService) GetUser(ctx context.Context, identity *domain.Identity, id string) (*domain.User, error) {
	if identity.ID != id && identity.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("cannot access another user's account")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// UserUpdateInput carries a partial profile update. Nil fields are left
// untouched.
type UserUpdateInput struct {
	Name     *string
	IsActive *bool
}

// UpdateUser applies a profile update. Users change their own name; only
// admins may update other accounts or toggle the active flag.
func (s *AuthService) UpdateUser(ctx context.Context, identity *domain.Identity, id string, input UserUpdateInput) (*domain.User, error) {
	if identity.ID != id && identity.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("cannot update another user's account")
	}
	if input.IsActive != nil && identity.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins may change account status")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name required", nil)
		}
		user.Name = name
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// DeleteUser removes an account. Admin-only; the scope gate sits in the
// route table.
func (s *AuthService) DeleteUser(ctx context.Context, identity *domain.Identity, id string) error {
	if identity.ID == id {
		return apperrors.NewValidationError("cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// Me loads the account behind an identity.
func (s *AuthService) Me(ctx context.Context, identity *domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": identity.ID})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.Identity())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
