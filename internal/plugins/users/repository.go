package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keyxmakerx/headless/internal/apperror"
)

// UserRepository defines the data access contract for user accounts.
// All SQL lives in the concrete implementation.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByLogin(ctx context.Context, login string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ListByRoles(ctx context.Context, roles []string) ([]User, error)
	Create(ctx context.Context, user *User) error
	Count(ctx context.Context) (int, error)
	UpdateLastLogin(ctx context.Context, id int64) error
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, user_login, user_email, display_name, user_pass, roles, created_at, last_login_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	u := &User{}
	var roles string
	if err := row.Scan(&u.ID, &u.Login, &u.Email, &u.DisplayName, &u.PasswordHash,
		&roles, &u.CreatedAt, &u.LastLoginAt); err != nil {
		return nil, err
	}
	u.Roles = splitRoles(roles)
	return u, nil
}

// splitRoles parses the comma-separated roles column.
func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func (r *userRepository) findOne(ctx context.Context, where string, arg any) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("querying user: %w", err))
	}
	return u, nil
}

// FindByID retrieves a user by numeric ID.
func (r *userRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByLogin retrieves a user by login name.
func (r *userRepository) FindByLogin(ctx context.Context, login string) (*User, error) {
	return r.findOne(ctx, "user_login = ?", login)
}

// FindByEmail retrieves a user by email address.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "user_email = ?", email)
}

// ListByRoles returns users holding any of the given roles, ordered by
// display name.
func (r *userRepository) ListByRoles(ctx context.Context, roles []string) ([]User, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	conds := make([]string, len(roles))
	args := make([]any, len(roles))
	for i, role := range roles {
		conds[i] = "FIND_IN_SET(?, roles) > 0"
		args[i] = role
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + strings.Join(conds, " OR ") +
		` ORDER BY display_name, user_login`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing users by role: %w", err))
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("scanning user: %w", err))
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("iterating users: %w", err))
	}
	return users, nil
}

// Create inserts a user row and sets user.ID from the auto-increment key.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (user_login, user_email, display_name, user_pass, roles, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		user.Login,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		strings.Join(user.Roles, ","),
		user.CreatedAt,
	)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("inserting user: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("reading user id: %w", err))
	}
	user.ID = id
	return nil
}

// Count returns the number of user accounts.
func (r *userRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, apperror.NewInternal(fmt.Errorf("counting users: %w", err))
	}
	return n, nil
}

// UpdateLastLogin stamps the user's last successful login.
func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	query := `UPDATE users SET last_login_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating last login: %w", err))
	}
	return nil
}
