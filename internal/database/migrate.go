package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"

	// File source driver for reading migration files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations brings the users and options tables up to the newest
// version in dir. It runs on every startup; an up-to-date schema is a no-op.
func RunMigrations(db *sql.DB, dir string) error {
	abs, err := migrationsSource(dir)
	if err != nil {
		return err
	}

	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+abs, "mysql", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Debug("schema up to date")
	case err != nil:
		return fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", verr)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty; fix it by hand and force the version", version)
	}
	slog.Info("migrations applied", slog.Uint64("version", uint64(version)))
	return nil
}

// migrationsSource resolves dir to an absolute path and checks that it is a
// directory, so a wrong MIGRATIONS_PATH fails with a readable error.
func migrationsSource(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving migrations path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("migrations path %q: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("migrations path %q is not a directory", dir)
	}
	return abs, nil
}
