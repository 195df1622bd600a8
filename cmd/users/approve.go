package users

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markgwharry/modiniapps/cmd/cmdutil"
)

var approveCmd = &cobra.Command{
	Use:     "approve",
	Short:   "Approve a pending account and email its temporary password",
	Example: `  modiniapps users approve --email new.starter@modini.co.uk --app crm --app wiki`,
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
		if unknown := unknownApps(bundle, appsInput); len(unknown) > 0 {
			fmt.Fprintf(os.Stderr, "warning: not in the app catalog: %s\n", strings.Join(unknown, ", "))
		}

		approved, err := bundle.Service.Approve(ctx, user.ID, appsInput)
		if err != nil {
			return fmt.Errorf("failed to approve user: %w", err)
		}

		fmt.Printf("Approved %s (id %d)\n", approved.Email, approved.ID)
		if len(approved.AllowedApps) > 0 {
			fmt.Printf("Apps: %s\n", strings.Join(approved.AllowedApps, ", "))
		}
		fmt.Println("A temporary password was sent to the user by email.")
		return nil
	},
}
