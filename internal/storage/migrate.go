package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"moneydrain/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateLedger applies pending ledger migrations to the database at dsn
// and returns the resulting schema version. A dirty schema (a migration
// that failed halfway) is reported instead of being retried.
func migrateLedger(ctx context.Context, dsn string) (uint, error) {
	// migrate closes the handle it is given, so the store's pool stays out of it.
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return 0, fmt.Errorf("open migration database: %w", err)
	}
	defer handle.Close()

	target, err := sqlite.WithInstance(handle, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	before, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		before = 0
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return before, fmt.Errorf("schema version %d is dirty, fix it by hand", before)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return before, fmt.Errorf("apply migrations: %w", err)
	}
	after, _, err := m.Version()
	if err != nil {
		return before, fmt.Errorf("read schema version: %w", err)
	}
	if after != before {
		storageLog(ctx).InfoContext(ctx, "Ledger schema migrated", "from", before, "to", after)
	}
	return after, nil
}
