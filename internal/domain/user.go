package domain

import "time"

// User is the account record for every party in the helpdesk: customers,
// read-only members, agents and admins share one table distinguished by role.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Scopes       []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity projects the stored account onto a request identity.
func (u *User) Identity() *Identity {
	return &Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Scopes: u.Scopes}
}
