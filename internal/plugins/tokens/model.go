// Package tokens issues and validates the HS256 bearer tokens GraphQL
// clients send, and serves the admin screen that mints them. A token
// carries a snapshot of its user; the signing secret lives in the options
// store, so rotating it invalidates every token issued before.
package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/keyxmakerx/headless/internal/plugins/users"
)

// Errors returned by the service. Validation failures all wrap
// ErrInvalidToken so callers can fail closed without inspecting them.
var (
	ErrUserNotFound = errors.New("tokens: user not found")
	ErrInvalidToken = errors.New("tokens: invalid token")
)

// Roles offered in the admin screen's user picker.
var pickerRoles = []string{users.RoleAdministrator, users.RoleEditor, users.RoleAuthor}

// Expiry choices offered in the generate form, in days.
var expiryChoices = []int{1, 7, 30, 90, 365}

const (
	// secretBytes is the length of a freshly generated signing secret.
	secretBytes = 32

	// generatedTokenTTL is how long a minted token waits to be shown once.
	generatedTokenTTL = 300 * time.Second

	// nonceAction guards every POST on the admin screen.
	nonceAction = "graphql_token_action"
)

// UserData is the user snapshot embedded in a token.
type UserData struct {
	ID          int64    `json:"id"`
	Login       string   `json:"login"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

func userDataFrom(u *users.User) UserData {
	return UserData{
		ID:          u.ID,
		Login:       u.Login,
		Email:       u.Email,
		DisplayName: u.Name(),
		Roles:       u.Roles,
	}
}

// ClaimsData is the "data" member of the payload.
type ClaimsData struct {
	User UserData `json:"user"`
}

// Claims is the token payload. "sub" is the numeric user ID, which rules out
// jwt.RegisteredClaims, so the jwt.Claims accessors are implemented here.
type Claims struct {
	Issuer    string     `json:"iss"`
	IssuedAt  int64      `json:"iat"`
	ExpiresAt int64      `json:"exp"`
	Subject   int64      `json:"sub"`
	Data      ClaimsData `json:"data"`
}

var _ jwt.Claims = (*Claims)(nil)

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

func (c *Claims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

func (c *Claims) GetSubject() (string, error) {
	return strconv.FormatInt(c.Subject, 10), nil
}

func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

// GeneratedToken is the result of Generate, shown once on the admin screen.
type GeneratedToken struct {
	Token     string    `json:"token"`
	User      UserData  `json:"user"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int64     `json:"expires_in"`
}

// Settings is the stored token configuration.
type Settings struct {
	// TokenExpiry is the default lifetime in seconds.
	TokenExpiry int64  `json:"token_expiry"`
	Issuer      string `json:"issuer"`
}

// Expiry returns TokenExpiry as a duration.
func (s Settings) Expiry() time.Duration {
	return time.Duration(s.TokenExpiry) * time.Second
}

// ExpiryDays returns the default lifetime rounded down to whole days.
func (s Settings) ExpiryDays() int {
	return int(s.TokenExpiry / 86400)
}
