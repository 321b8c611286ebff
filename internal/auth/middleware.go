package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/command-center/helpdesk/internal/domain"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

const identityKey = "auth_identity"

// AuthMiddleware resolves bearer credentials into request identities.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	identity, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// IdentityFromToken resolves a raw credential outside the HTTP middleware
// chain, for transports that carry the token in a query parameter.
func (m *AuthMiddleware) IdentityFromToken(token string) (*domain.Identity, error) {
	identity, err := m.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthenticated("invalid token")
	}
	return identity, nil
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*domain.Identity)
	return identity, ok
}
