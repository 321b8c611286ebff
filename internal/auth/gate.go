package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/command-center/helpdesk/internal/domain"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

// RequireScope gates a route on a single capability scope.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if !Authorize(identity, scope) {
			return apperrors.NewForbidden("insufficient permissions")
		}
		return c.Next()
	}
}

// RequireAnyScope gates a route on holding at least one of the scopes.
// Used where customer and agent variants of a capability differ only in
// qualifier ("messages:create:own" vs "messages:create").
func RequireAnyScope(scopes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		for _, scope := range scopes {
			if Authorize(identity, scope) {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient permissions")
	}
}

// RequireRole is the legacy role-only gate. Routes declaring both a role set
// and a scope chain both handlers, which ANDs the checks.
func RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if !RoleAllows(identity, roles...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// BlockReadOnly denies write operations for member accounts regardless of
// any scope they might have been granted.
func BlockReadOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if identity.Role == domain.RoleMember {
			return apperrors.NewForbidden("read-only access: members cannot perform write operations")
		}
		return c.Next()
	}
}

// CanAccessTicket is the ownership check for ticket reads and updates.
// Agents and admins act on any ticket; customers only on their own.
func CanAccessTicket(identity *domain.Identity, ticket *domain.Ticket) bool {
	if identity == nil || ticket == nil {
		return false
	}
	switch identity.Role {
	case domain.RoleAgent, domain.RoleAdmin:
		return true
	default:
		return ticket.CustomerID == identity.ID
	}
}

// CanAccessSession is the ownership check for session operations. The
// customer who opened the session, the joined agent, and admins qualify.
func CanAccessSession(identity *domain.Identity, session *domain.Session) bool {
	if identity == nil || session == nil {
		return false
	}
	if identity.Role == domain.RoleAdmin {
		return true
	}
	if session.CustomerID == identity.ID {
		return true
	}
	if session.AgentID != nil && *session.AgentID == identity.ID {
		return true
	}
	// An agent may pick up an unassigned waiting session.
	return identity.Role == domain.RoleAgent && session.AgentID == nil
}
