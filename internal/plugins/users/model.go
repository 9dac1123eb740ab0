// Package users holds the console's user accounts: lookup, password
// verification, and the role checks the admin screens rely on.
package users

import (
	"time"
)

// Role names. A user may hold several.
const (
	RoleAdministrator = "administrator"
	RoleEditor        = "editor"
	RoleAuthor        = "author"
)

// User is a console account. Database scanning and token snapshots use this
// struct directly.
type User struct {
	ID           int64      `json:"id"`
	Login        string     `json:"login"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"`
	Roles        []string   `json:"roles"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdministrator reports whether the user may manage settings and tokens.
func (u *User) IsAdministrator() bool {
	return u.HasRole(RoleAdministrator)
}

// Name returns the display name, falling back to the login.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Login
}
