package domain

// Role classifies an account for coarse, legacy role gates.
// Authorization decisions proper are scope-based; see the auth package.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleMember   Role = "member"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

// ValidRole reports whether the role is one of the known account roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleCustomer, RoleMember, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated caller for the lifetime of a request.
// Immutable once resolved from a credential.
type Identity struct {
	ID     string
	Email  string
	Name   string
	Role   Role
	Scopes []string
}

// HasScope reports whether the identity carries the exact scope string.
// Wildcard expansion lives in auth.Authorize; this is a literal lookup.
func (i *Identity) HasScope(scope string) bool {
	for _, s := range i.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
