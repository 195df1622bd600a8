package users

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markgwharry/modiniapps/cmd/cmdutil"
)

// bootstrapAdminCmd ensures the configured administrator exists.
var bootstrapAdminCmd = &cobra.Command{
	Use:   "bootstrap-admin",
	Short: "Create or promote the ADMIN_EMAIL account",
	Long: `Ensures an approved administrator exists for ADMIN_EMAIL.

A missing account is created with ADMIN_PASSWORD. An existing account is
promoted to admin and approved; its password is left unchanged.

The same step runs automatically when 'serve' starts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := cmdutil.Runtime()
		if !cfg.Admin.Enabled() {
			return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
		}

		ctx, cancel := cmdutil.CommandContext(cmd.Context())
		defer cancel()

		bundle, err := openService(ctx)
		if err != nil {
			return err
		}
		defer bundle.Close()

		user, created, err := bundle.Service.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
		if created {
			fmt.Printf("Admin user created: %s\n", user.Email)
		} else {
			fmt.Printf("Admin user ready: %s\n", user.Email)
		}
		return nil
	},
}
