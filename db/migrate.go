// Package db owns the database schema. Migrations are embedded at
// compile time and applied through golang-migrate, which tracks state
// in its schema_migrations table.
package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx v5 driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending migrations. connURL must be a
// postgres:// or postgresql:// URL; already-applied migrations are
// skipped. A database left dirty by an earlier failed run is refused
// and needs a manual `migrate force`.
func Migrate(connURL string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbURL, err := migrateURL(connURL)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("connect for migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("close migration source", "error", srcErr)
		}
		if dbErr != nil {
			logger.Warn("close migration connection", "error", dbErr)
		}
	}()

	if err := refuseDirty(m); err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("schema already up to date")
			return nil
		}
		if v, dirty, vErr := m.Version(); vErr == nil && dirty {
			logger.Error("migration failed and left the schema dirty",
				"version", v,
				"hint", fmt.Sprintf("fix the migration, then run: migrate force %d", v))
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	if v, dirty, vErr := m.Version(); vErr == nil {
		logger.Info("migrations applied", "version", v, "dirty", dirty)
	}
	return nil
}

func refuseDirty(m *migrate.Migrate) error {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema is dirty at version %d, run `migrate force %d` after manual cleanup", version, version)
	}
	return nil
}

// migrateURL rewrites the URL scheme to pgx5:// so golang-migrate
// selects its pgx v5 driver.
func migrateURL(connURL string) (string, error) {
	u, err := url.Parse(connURL)
	if err != nil {
		return "", fmt.Errorf("parse database URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		u.Scheme = "pgx5"
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme %q", u.Scheme)
	}
}
