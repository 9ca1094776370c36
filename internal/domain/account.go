// Package domain contains core domain types for the gatekeeper.
package domain

import (
	"time"
)

// Role classifies an account. Exactly two values exist.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"

	// RoleAny is the zero value used where a role filter is optional.
	RoleAny Role = ""
)

// Valid reports whether r is one of the two concrete roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Account represents a credentialed user of the gatekeeper.
type Account struct {
	Username     string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// IsAdmin returns true for accounts with the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// AccountInfo is the listing projection of an account (no secrets).
type AccountInfo struct {
	Username string
	Role     Role
}
