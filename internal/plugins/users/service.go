package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/keyxmakerx/headless/internal/apperror"
)

// UserService defines the business logic contract for user accounts.
// Handlers and other plugins call these methods, never the repository.
type UserService interface {
	// GetByID returns the user or apperror NotFound.
	GetByID(ctx context.Context, id int64) (*User, error)

	// CheckCredentials resolves a login name (or email address) and verifies
	// the password. Any failure is a 401 with the same message.
	CheckCredentials(ctx context.Context, username, password string) (*User, error)

	// ListByRoles returns users holding any of the given roles.
	ListByRoles(ctx context.Context, roles ...string) ([]User, error)

	// RecordLogin stamps a successful login. Failures are logged, not returned.
	RecordLogin(ctx context.Context, id int64)

	// EnsureBootstrapAdmin creates an administrator when no accounts exist.
	EnsureBootstrapAdmin(ctx context.Context, login, password, email string) error
}

// userService implements UserService.
type userService struct {
	repo UserRepository
}

// NewUserService creates a new user service.
func NewUserService(repo UserRepository) UserService {
	return &userService{repo: repo}
}

// GetByID returns a user by ID.
func (s *userService) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// errBadCredentials is returned for both unknown users and wrong
// passwords.
func errBadCredentials() error {
	return apperror.NewUnauthorized("Invalid username or password.")
}

// CheckCredentials verifies a username/password pair.
func (s *userService) CheckCredentials(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errBadCredentials()
	}

	user, err := s.repo.FindByLogin(ctx, username)
	if apperror.IsNotFound(err) && strings.Contains(username, "@") {
		user, err = s.repo.FindByEmail(ctx, strings.ToLower(username))
	}
	if apperror.IsNotFound(err) {
		VerifyPassword(password, string(dummyHash))
		return nil, errBadCredentials()
	}
	if err != nil {
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, errBadCredentials()
	}
	return user, nil
}

// ListByRoles returns users holding any of roles.
func (s *userService) ListByRoles(ctx context.Context, roles ...string) ([]User, error) {
	return s.repo.ListByRoles(ctx, roles)
}

// RecordLogin updates the last-login timestamp.
func (s *userService) RecordLogin(ctx context.Context, id int64) {
	if err := s.repo.UpdateLastLogin(ctx, id); err != nil {
		slog.Warn("failed to update last login",
			slog.Int64("user_id", id),
			slog.Any("error", err),
		)
	}
}

// EnsureBootstrapAdmin creates the first administrator account. It does
// nothing when login or password is empty or when any account exists.
func (s *userService) EnsureBootstrapAdmin(ctx context.Context, login, password, email string) error {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil
	}

	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return apperror.NewInternal(err)
	}

	user := &User{
		Login:        login,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		DisplayName:  login,
		PasswordHash: hash,
		Roles:        []string{RoleAdministrator},
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return fmt.Errorf("creating bootstrap administrator: %w", err)
	}

	slog.Info("bootstrap administrator created",
		slog.Int64("user_id", user.ID),
		slog.String("login", user.Login),
	)
	return nil
}
