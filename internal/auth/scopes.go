package auth

import (
	"strings"

	"github.com/command-center/helpdesk/internal/domain"
)

// Authorize decides whether the identity may perform the operation guarded by
// requiredScope. An identity holding the exact scope always qualifies; a held
// wildcard scope such as "tickets:*" satisfies any required scope in that
// domain prefix. Unknown or empty scope sets deny (fail-closed). Pure; no
// side effects.
func Authorize(identity *domain.Identity, requiredScope string) bool {
	if identity == nil || requiredScope == "" {
		return false
	}
	for _, held := range identity.Scopes {
		if held == requiredScope {
			return true
		}
		if strings.HasSuffix(held, ":*") {
			prefix := strings.TrimSuffix(held, "*")
			if strings.HasPrefix(requiredScope, prefix) {
				return true
			}
		}
	}
	return false
}

// RoleAllows is the coarser legacy role gate. Where an operation declares
// both a role set and a scope, callers must pass both checks.
func RoleAllows(identity *domain.Identity, allowed ...domain.Role) bool {
	if identity == nil {
		return false
	}
	for _, role := range allowed {
		if identity.Role == role {
			return true
		}
	}
	return false
}

// DefaultScopes returns the capability set granted at account creation for a
// role. Member accounts are read-only: no create/update/delete scope is ever
// in their default set.
func DefaultScopes(role domain.Role) []string {
	switch role {
	case domain.RoleCustomer:
		return []string{
			"tickets:create",
			"tickets:read:own",
			"messages:create:own",
			"sessions:create",
			"sessions:join:own",
			"sessions:end:own",
		}
	case domain.RoleMember:
		return []string{
			"tickets:read:family",
			"sessions:read:family",
			"analytics:read:optional",
		}
	case domain.RoleAgent:
		return []string{
			"tickets:read:all",
			"tickets:update:assigned",
			"tickets:resolve:assigned",
			"messages:create",
			"users:read:assigned",
			"sessions:join:assigned",
			"sessions:end:assigned",
		}
	case domain.RoleAdmin:
		return []string{
			"tickets:*",
			"users:*",
			"analytics:read",
			"settings:update",
			"sessions:*",
			"audit:read",
		}
	default:
		return nil
	}
}

// BackfillScopes returns the default set for accounts that predate scoped
// authorization. Invoked explicitly at login, never as a side effect of a
// read path. Accounts with any scopes keep them unchanged.
func BackfillScopes(user *domain.User) bool {
	if len(user.Scopes) > 0 {
		return false
	}
	user.Scopes = DefaultScopes(user.Role)
	return len(user.Scopes) > 0
}
