package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/keyxmakerx/headless/internal/apperror"
	"github.com/keyxmakerx/headless/internal/config"
	"github.com/keyxmakerx/headless/internal/options"
	"github.com/keyxmakerx/headless/internal/plugins/auth"
	"github.com/keyxmakerx/headless/internal/plugins/users"
	"github.com/keyxmakerx/headless/internal/sanitize"
)

// TokenService issues and validates bearer tokens.
type TokenService interface {
	// Generate mints a token for userID. expiresIn <= 0 uses the configured
	// default. Returns ErrUserNotFound for an unknown user.
	Generate(ctx context.Context, userID int64, expiresIn time.Duration) (*GeneratedToken, error)

	// Validate checks structure, signature, algorithm and expiry. Every
	// failure wraps ErrInvalidToken.
	Validate(ctx context.Context, token string) (*Claims, error)

	// Authenticate validates the token and resolves its subject to a live
	// user.
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)

	// RegenerateSecret replaces the signing secret.
	RegenerateSecret(ctx context.Context) error

	// Settings returns the stored settings merged over the defaults.
	Settings(ctx context.Context) (*Settings, error)

	// UpdateSettings stores the default expiry (whole days) and issuer.
	UpdateSettings(ctx context.Context, expiryDays int, issuer string) (*Settings, error)
}

// tokenService implements TokenService.
type tokenService struct {
	options  options.Store
	users    users.UserService
	defaults Settings
	now      func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(store options.Store, us users.UserService, cfg config.TokensConfig) TokenService {
	return &tokenService{
		options: store,
		users:   us,
		defaults: Settings{
			TokenExpiry: int64(cfg.DefaultExpiry / time.Second),
			Issuer:      cfg.Issuer,
		},
		now: time.Now,
	}
}

func (s *tokenService) Generate(ctx context.Context, userID int64, expiresIn time.Duration) (*GeneratedToken, error) {
	user, err := s.users.GetByID(ctx, userID)
	if apperror.IsNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if expiresIn <= 0 {
		expiresIn = settings.Expiry()
	}

	secret, err := s.secret(ctx)
	if err != nil {
		return nil, err
	}

	issued := s.now().Truncate(time.Second)
	expires := issued.Add(expiresIn)
	claims := &Claims{
		Issuer:    settings.Issuer,
		IssuedAt:  issued.Unix(),
		ExpiresAt: expires.Unix(),
		Subject:   user.ID,
		Data:      ClaimsData{User: userDataFrom(user)},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("signing token: %w", err))
	}

	slog.Info("bearer token generated",
		slog.Int64("user_id", user.ID),
		slog.Time("expires_at", expires),
	)
	return &GeneratedToken{
		Token:     signed,
		User:      claims.Data.User,
		IssuedAt:  issued,
		ExpiresAt: expires,
		ExpiresIn: int64(expiresIn / time.Second),
	}, nil
}

func (s *tokenService) Validate(ctx context.Context, token string) (*Claims, error) {
	secret, err := s.secret(ctx)
	if err != nil {
		return nil, err
	}

	// Expiry is checked at whole-second resolution: a token is rejected once
	// exp lies in the past, not at exp itself.
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Second),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *tokenService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if apperror.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return auth.PrincipalFromUser(user, auth.MethodBearer), nil
}

func (s *tokenService) RegenerateSecret(ctx context.Context) error {
	secret, err := newSecret()
	if err != nil {
		return apperror.NewInternal(err)
	}
	if err := options.SetJSON(ctx, s.options, options.TokenSecret, secret); err != nil {
		return err
	}
	slog.Warn("bearer token secret regenerated; all issued tokens are now invalid")
	return nil
}

func (s *tokenService) Settings(ctx context.Context) (*Settings, error) {
	settings := s.defaults
	if _, err := options.GetJSON(ctx, s.options, options.TokenSettings, &settings); err != nil {
		return nil, err
	}
	if settings.TokenExpiry <= 0 {
		settings.TokenExpiry = s.defaults.TokenExpiry
	}
	if settings.Issuer == "" {
		settings.Issuer = s.defaults.Issuer
	}
	return &settings, nil
}

func (s *tokenService) UpdateSettings(ctx context.Context, expiryDays int, issuer string) (*Settings, error) {
	if expiryDays < 1 {
		return nil, apperror.NewValidation("Default expiry must be at least one day.")
	}
	settings := &Settings{
		TokenExpiry: int64(expiryDays) * 86400,
		Issuer:      sanitize.Text(issuer),
	}
	if settings.Issuer == "" {
		settings.Issuer = s.defaults.Issuer
	}
	if err := options.SetJSON(ctx, s.options, options.TokenSettings, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// secret returns the signing key, creating it on first use. Concurrent
// first uses agree on one secret through the store's add-if-absent.
func (s *tokenService) secret(ctx context.Context) ([]byte, error) {
	var secret string
	found, err := options.GetJSON(ctx, s.options, options.TokenSecret, &secret)
	if err != nil {
		return nil, err
	}
	if found && secret != "" {
		return []byte(secret), nil
	}

	fresh, err := newSecret()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	created, err := options.AddJSON(ctx, s.options, options.TokenSecret, fresh)
	if err != nil {
		return nil, err
	}
	if created {
		return []byte(fresh), nil
	}

	// Another request won the race, or an empty value is stored.
	if _, err := options.GetJSON(ctx, s.options, options.TokenSecret, &secret); err != nil {
		return nil, err
	}
	if secret == "" {
		if err := options.SetJSON(ctx, s.options, options.TokenSecret, fresh); err != nil {
			return nil, err
		}
		return []byte(fresh), nil
	}
	return []byte(secret), nil
}

func newSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IsInvalid reports whether err is a token validation failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
