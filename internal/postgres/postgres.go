// Package postgres holds helpers shared by the repositories and the
// migration tooling.
package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, optionally restricted to the named constraint or index.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// NewMigrator returns a migrate instance for the given source and database.
func NewMigrator(sourceURL, databaseURL string) (*migrate.Migrate, error) {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration. No pending migrations is not an error.
func MigrateUp(sourceURL, databaseURL string) error {
	m, err := NewMigrator(sourceURL, databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
