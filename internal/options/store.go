// Package options persists named site options in MariaDB. Values are JSON
// documents so structured options (token settings, URL lists) round-trip
// without per-option columns.
package options

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keyxmakerx/headless/internal/apperror"
)

// Option names shared across plugins.
const (
	SiteRedirect  = "site_redirect"
	AllowedURLs   = "allowed_urls"
	TokenSecret   = "graphql_jwt_secret"
	TokenSettings = "graphql_jwt_settings"
)

// Store defines the data access contract for options. Values are raw JSON.
type Store interface {
	// Get returns the raw value. Returns apperror NotFound if the option is unset.
	Get(ctx context.Context, name string) (string, error)

	// Set upserts the option.
	Set(ctx context.Context, name, value string) error

	// Add stores the option only if it does not exist yet and reports
	// whether this call created it.
	Add(ctx context.Context, name, value string) (bool, error)

	// Delete removes the option. Deleting a missing option is not an error.
	Delete(ctx context.Context, name string) error
}

// mariaStore implements Store using MariaDB.
type mariaStore struct {
	db *sql.DB
}

// NewStore creates an options store backed by MariaDB.
func NewStore(db *sql.DB) Store {
	return &mariaStore{db: db}
}

// Get retrieves a single option value by name.
func (s *mariaStore) Get(ctx context.Context, name string) (string, error) {
	query := `SELECT option_value FROM options WHERE option_name = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NewNotFound(fmt.Sprintf("option %q not found", name))
	}
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("querying option %q: %w", name, err))
	}
	return value, nil
}

// Set upserts an option using INSERT ... ON DUPLICATE KEY UPDATE.
func (s *mariaStore) Set(ctx context.Context, name, value string) error {
	query := `INSERT INTO options (option_name, option_value)
	          VALUES (?, ?)
	          ON DUPLICATE KEY UPDATE option_value = VALUES(option_value)`

	if _, err := s.db.ExecContext(ctx, query, name, value); err != nil {
		return apperror.NewInternal(fmt.Errorf("upserting option %q: %w", name, err))
	}
	return nil
}

// Add inserts an option with INSERT IGNORE. When two callers race, exactly
// one of them sees created == true.
func (s *mariaStore) Add(ctx context.Context, name, value string) (bool, error) {
	query := `INSERT IGNORE INTO options (option_name, option_value) VALUES (?, ?)`

	res, err := s.db.ExecContext(ctx, query, name, value)
	if err != nil {
		return false, apperror.NewInternal(fmt.Errorf("adding option %q: %w", name, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperror.NewInternal(fmt.Errorf("adding option %q: %w", name, err))
	}
	return n == 1, nil
}

// Delete removes an option.
func (s *mariaStore) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM options WHERE option_name = ?`, name); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting option %q: %w", name, err))
	}
	return nil
}

// --- JSON helpers ---

// GetJSON decodes the named option into dest. It reports false when the
// option is unset.
func GetJSON(ctx context.Context, s Store, name string, dest any) (bool, error) {
	raw, err := s.Get(ctx, name)
	if apperror.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, apperror.NewInternal(fmt.Errorf("decoding option %q: %w", name, err))
	}
	return true, nil
}

// SetJSON encodes value and upserts it under name.
func SetJSON(ctx context.Context, s Store, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("encoding option %q: %w", name, err))
	}
	return s.Set(ctx, name, string(data))
}

// AddJSON encodes value and stores it under name unless the option exists.
func AddJSON(ctx context.Context, s Store, name string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, apperror.NewInternal(fmt.Errorf("encoding option %q: %w", name, err))
	}
	return s.Add(ctx, name, string(data))
}
