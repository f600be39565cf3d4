package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// DSN builds the connection string golang-migrate's pgx/v5 driver expects:
// the same scheme database/sql drivers use, with "pgx5" in place of
// "postgres" so migrate picks the registered pgx/v5 driver rather than
// lib/pq.
func DSN(cfg Config) string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)
}

// RunMigrations applies every pending migration under migrationsPath
// (a directory of numbered *.up.sql/*.down.sql pairs) to the database
// identified by databaseURL. It is idempotent: an already-up-to-date
// schema returns nil rather than an error.
func RunMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
