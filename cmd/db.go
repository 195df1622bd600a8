package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/cmd/cmdutil"
	"github.com/markgwharry/modiniapps/internal/db/bunx"
	"github.com/markgwharry/modiniapps/internal/migrations"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing database migrations and schema.`,
}

// withMigrator opens the database and hands fn a migrator for it.
func withMigrator(fn func(ctx context.Context, migrator *migrate.Migrator) error) error {
	db, err := cmdutil.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer bunx.Close(db) //nolint:errcheck

	return fn(context.Background(), migrate.NewMigrator(db, migrations.Migrations))
}

// locked runs fn while holding the migration lock.
func locked(ctx context.Context, migrator *migrate.Migrator, fn func() error) error {
	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if err := migrator.Unlock(ctx); err != nil {
			logger.Warn("failed to release migration lock", zap.Error(err))
		}
	}()
	return fn()
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize migration tables",
	Long:  `Creates the migration tracking tables in the database. Run this once during initial setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, migrator *migrate.Migrator) error {
			if err := migrator.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			logger.Info("migration tables initialized")
			return nil
		})
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies all pending migrations to the database with locking to prevent concurrent migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, migrator *migrate.Migrator) error {
			if err := migrator.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize migrator: %w", err)
			}
			return locked(ctx, migrator, func() error {
				group, err := migrator.Migrate(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				if group.IsZero() {
					logger.Info("no new migrations to apply")
				} else {
					logger.Info("applied migration group", zap.Int64("group_id", group.ID), zap.String("migrations", group.Migrations.String()))
				}
				return nil
			})
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long:  `Displays the current migration status and pending migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, migrator *migrate.Migrator) error {
			ms, err := migrator.MigrationsWithStatus(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Println("Migrations:")
			for _, m := range ms {
				status := "pending"
				if m.GroupID > 0 {
					status = fmt.Sprintf("applied (group %d)", m.GroupID)
				}
				fmt.Printf("  %s: %s\n", m.Name, status)
			}
			return nil
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback last migration group",
	Long:  `Rolls back the most recently applied migration group with locking to prevent concurrent operations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, migrator *migrate.Migrator) error {
			return locked(ctx, migrator, func() error {
				group, err := migrator.Rollback(ctx)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				if group.IsZero() {
					logger.Info("no migrations to rollback")
				} else {
					logger.Info("rolled back migration group", zap.Int64("group_id", group.ID))
				}
				return nil
			})
		})
	},
}

var dbLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manually acquire migration lock",
	Long:  `Acquires the migration lock. Useful for debugging or maintenance operations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, migrator *migrate.Migrator) error {
			if err := migrator.Lock(ctx); err != nil {
				return fmt.Errorf("failed to acquire migration lock: %w", err)
			}
			logger.Info("migration lock acquired; run 'db unlock' when finished")
			return nil
		})
	},
}

var dbUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Force release migration lock",
	Long:  `Force releases the migration lock. Use this if a migration crashed while holding the lock.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(ctx context.Context, migrator *migrate.Migrator) error {
			if err := migrator.Unlock(ctx); err != nil {
				return fmt.Errorf("failed to release migration lock: %w", err)
			}
			logger.Info("migration lock released")
			return nil
		})
	},
}

func init() {
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
	dbCmd.AddCommand(dbLockCmd)
	dbCmd.AddCommand(dbUnlockCmd)
	rootCmd.AddCommand(dbCmd)
}
