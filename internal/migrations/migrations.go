package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the versioned schema history. Files in this package
// register themselves from init using the timestamp in their file name.
var Migrations = migrate.NewMigrations()

// Apply creates the migration bookkeeping tables if needed and runs every
// pending migration while holding the migration lock.
func Apply(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	if err := migrator.Lock(ctx); err != nil {
		return nil, fmt.Errorf("lock migrations: %w", err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}

// dropTables drops tables in the given order. CASCADE is PostgreSQL only.
func dropTables(ctx context.Context, db *bun.DB, tables ...string) error {
	for _, table := range tables {
		fmt.Printf(" [down] dropping %s table...", table)
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
		if IsPostgreSQL(db) {
			stmt += " CASCADE"
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", table, err)
		}
		fmt.Println(" OK")
	}
	return nil
}
