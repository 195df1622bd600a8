package users

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markgwharry/modiniapps/cmd/cmdutil"
	"github.com/markgwharry/modiniapps/internal/services/iam"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an approved account without the approval queue",
	Example: `  modiniapps users create --email ops@modini.co.uk --stdin --app crm --app wiki
  modiniapps users create --email root@modini.co.uk --password '...' --admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		password, err := readPassword(os.Stdin, stdinFlag, passwordFlag)
		if err != nil {
			return err
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		ctx, cancel := cmdutil.CommandContext(cmd.Context())
		defer cancel()

		bundle, err := openService(ctx)
		if err != nil {
			return err
		}
		defer bundle.Close()

		if unknown := unknownApps(bundle, appsInput); len(unknown) > 0 {
			fmt.Fprintf(os.Stderr, "warning: not in the app catalog: %s\n", strings.Join(unknown, ", "))
		}

		user, err := bundle.Service.CreateUser(ctx, iam.NewUser{
			Email:    emailFlag,
			Password: password,
			Admin:    adminFlag,
			Approved: true,
			Apps:     appsInput,
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Println("User created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("User ID: %d\n", user.ID)
		fmt.Printf("Email: %s\n", user.Email)
		fmt.Printf("Admin: %t\n", user.IsAdmin)
		if len(user.AllowedApps) > 0 {
			fmt.Printf("Apps: %s\n", strings.Join(user.AllowedApps, ", "))
		}
		fmt.Println("----------------------------------------")
		return nil
	},
}

// unknownApps returns the requested slugs missing from the catalog.
// Entitlements for unknown slugs are stored but grant nothing until the
// catalog gains the app.
func unknownApps(bundle *cmdutil.ServiceBundle, slugs []string) []string {
	apps := bundle.Catalog.Apps()
	var unknown []string
	for _, slug := range iam.NormalizeSlugs(slugs) {
		if _, ok := apps.Find(slug); !ok {
			unknown = append(unknown, slug)
		}
	}
	return unknown
}
