package users

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markgwharry/modiniapps/cmd/cmdutil"
)

// UsersCmd is the parent command for account management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage gateway accounts",
	Long:  `Commands for managing gateway accounts directly from the server.`,
}

var (
	emailFlag    string
	passwordFlag string
	appsInput    []string
	adminFlag    bool
	stdinFlag    bool
	filterFlag   string
)

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")
	createCmd.Flags().BoolVar(&adminFlag, "admin", false, "Grant the admin flag")
	createCmd.Flags().StringSliceVar(&appsInput, "app", []string{}, "App slug(s) the user may open")

	listCmd.Flags().StringVar(&filterFlag, "filter", "", `go-bexpr filter, e.g. 'approved == false' or '"crm" in apps'`)

	approveCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the pending user")
	approveCmd.Flags().StringSliceVar(&appsInput, "app", []string{}, "App slug(s) to grant on approval")

	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(listCmd)
	UsersCmd.AddCommand(approveCmd)
	UsersCmd.AddCommand(bootstrapAdminCmd)
}

// openService builds the IAM service for one command invocation.
func openService(ctx context.Context) (*cmdutil.ServiceBundle, error) {
	cfg, logger := cmdutil.Runtime()
	return cmdutil.NewServiceBundle(ctx, cfg, cmdutil.ServiceOptions{Logger: logger})
}

// readPassword returns the --password value or the first line of r.
func readPassword(r io.Reader, fromStdin bool, flagValue string) (string, error) {
	if !fromStdin {
		return flagValue, nil
	}
	if f, ok := r.(*os.File); ok && f == os.Stdin {
		fmt.Print("Enter password: ")
	}
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return "", nil
}
