// Package auth handles console sessions: creating and validating them in
// Redis, the session cookie, and the request principal that the lockdown
// filter and admin screens consult. Bearer-token requests populate the same
// principal through SetPrincipal.
package auth

import (
	"time"

	"github.com/keyxmakerx/headless/internal/plugins/users"
)

// Authentication methods recorded on a Principal.
const (
	MethodSession = "session"
	MethodBearer  = "bearer"
)

// Session represents a console session stored in Redis. The session token
// is the key, and this struct is the value (JSON-encoded).
type Session struct {
	UserID    int64     `json:"user_id"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is the authenticated identity of the current request.
type Principal struct {
	UserID      int64    `json:"id"`
	Login       string   `json:"login"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
	Method      string   `json:"auth_method"`
}

// IsAdministrator reports whether the principal holds the administrator role.
func (p *Principal) IsAdministrator() bool {
	for _, r := range p.Roles {
		if r == users.RoleAdministrator {
			return true
		}
	}
	return false
}

// PrincipalFromUser builds a principal for a resolved user account.
func PrincipalFromUser(u *users.User, method string) *Principal {
	return &Principal{
		UserID:      u.ID,
		Login:       u.Login,
		Email:       u.Email,
		DisplayName: u.Name(),
		Roles:       u.Roles,
		Method:      method,
	}
}

func principalFromSession(s *Session) *Principal {
	return &Principal{
		UserID:      s.UserID,
		Login:       s.Login,
		Email:       s.Email,
		DisplayName: s.Name,
		Roles:       s.Roles,
		Method:      MethodSession,
	}
}
