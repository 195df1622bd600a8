package catalog

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appcatalog "github.com/markgwharry/modiniapps/internal/catalog"
)

// CatalogCmd is the parent command for app catalog tooling.
// Its subcommands work offline and need no database or secrets.
var CatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the app catalog",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}

var fileFlag string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an apps file against the catalog schema",
	Example: `  modiniapps catalog validate --file apps.json
  modiniapps catalog validate --file deploy/apps.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if fileFlag == "" {
			return fmt.Errorf("--file flag is required")
		}

		apps, err := appcatalog.LoadFile(fileFlag)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SLUG\tNAME\tURL")
		for _, app := range apps {
			fmt.Fprintf(w, "%s\t%s\t%s\n", app.Slug, app.Name, app.URL)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("%s: %d app(s) OK\n", fileFlag, len(apps))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&fileFlag, "file", "apps.json", "Path to the apps file (.json, .yaml or .yml)")

	CatalogCmd.AddCommand(validateCmd)
}
