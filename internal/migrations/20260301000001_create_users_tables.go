package migrations

import (
	"context"
	"fmt"

	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000001, down_20260301000001)
}

// up_20260301000001 creates the account and entitlement tables
func up_20260301000001(ctx context.Context, db *bun.DB) error {
	// 1. Create users table
	fmt.Print(" [up] creating users table...")
	_, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_users_approved ON users(approved)`)
	if err != nil {
		return fmt.Errorf("failed to create users approved index: %w", err)
	}
	fmt.Println(" OK")

	// 2. Create user_apps table (composite PK on user_id, app_slug)
	// FK declared inline: SQLite cannot add constraints after creation.
	fmt.Print(" [up] creating user_apps table...")
	_, err = db.NewCreateTable().
		Model((*models.UserApp)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user_apps table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260301000001 drops the account tables in reverse order
func down_20260301000001(ctx context.Context, db *bun.DB) error {
	return dropTables(ctx, db, "user_apps", "users")
}
