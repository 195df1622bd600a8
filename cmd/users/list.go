package users

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/markgwharry/modiniapps/cmd/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts with their status and apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdutil.CommandContext(cmd.Context())
		defer cancel()

		bundle, err := openService(ctx)
		if err != nil {
			return err
		}
		defer bundle.Close()

		users, err := bundle.Service.ListUsers(ctx, filterFlag)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tSTATUS\tAPPS\tCREATED_AT")
		for _, u := range users {
			status := "pending"
			switch {
			case u.IsAdmin:
				status = "admin"
			case u.Approved:
				status = "approved"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				u.ID,
				u.Email,
				status,
				strings.Join(u.AllowedApps, ","),
				u.CreatedAt.Format(time.RFC3339),
			)
		}
		return w.Flush()
	},
}
