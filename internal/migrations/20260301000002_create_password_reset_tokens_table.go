package migrations

import (
	"context"
	"fmt"

	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260301000002, down_20260301000002)
}

// up_20260301000002 creates the password_reset_tokens table
func up_20260301000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating password_reset_tokens table...")
	_, err := db.NewCreateTable().
		Model((*models.PasswordResetToken)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create password_reset_tokens table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_user_id ON password_reset_tokens(user_id)`)
	if err != nil {
		return fmt.Errorf("failed to create password_reset_tokens user_id index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260301000002 drops the password_reset_tokens table
func down_20260301000002(ctx context.Context, db *bun.DB) error {
	return dropTables(ctx, db, "password_reset_tokens")
}
