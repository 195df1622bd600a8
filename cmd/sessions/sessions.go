package sessions

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markgwharry/modiniapps/cmd/cmdutil"
)

// SessionsCmd is the parent command for session maintenance
var SessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Maintain browser sessions",
}

var emailFlag string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired and revoked sessions",
	Long:  `Deletes expired and revoked sessions. 'serve' does the same every hour.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdutil.CommandContext(cmd.Context())
		defer cancel()

		bundle, err := openService(ctx)
		if err != nil {
			return err
		}
		defer bundle.Close()

		n, err := bundle.Service.PruneSessions(ctx)
		if err != nil {
			return fmt.Errorf("failed to prune sessions: %w", err)
		}
		fmt.Printf("Pruned %d session(s)\n", n)
		return nil
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Sign a user out everywhere",
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}

		ctx, cancel := cmdutil.CommandContext(cmd.Context())
		defer cancel()

		bundle, err := openService(ctx)
		if err != nil {
			return err
		}
		defer bundle.Close()

		user, err := bundle.Service.GetUserByEmail(ctx, emailFlag)
		if err != nil {
			return fmt.Errorf("failed to find user %q: %w", emailFlag, err)
		}
		n, err := bundle.Service.RevokeUserSessions(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		fmt.Printf("Revoked %d session(s) for %s\n", n, user.Email)
		return nil
	},
}

func openService(ctx context.Context) (*cmdutil.ServiceBundle, error) {
	cfg, logger := cmdutil.Runtime()
	return cmdutil.NewServiceBundle(ctx, cfg, cmdutil.ServiceOptions{Logger: logger})
}

func init() {
	revokeCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")

	SessionsCmd.AddCommand(pruneCmd)
	SessionsCmd.AddCommand(revokeCmd)
}
