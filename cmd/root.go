package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/cmd/catalog"
	"github.com/markgwharry/modiniapps/cmd/cmdutil"
	"github.com/markgwharry/modiniapps/cmd/sessions"
	"github.com/markgwharry/modiniapps/cmd/users"
	"github.com/markgwharry/modiniapps/internal/config"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "modiniapps",
	Short: "Modini Apps identity and entitlement gateway",
	Long: `Modini Apps is the sign-in gateway in front of the Modini applications.
It registers and approves accounts, tracks which apps each user may open,
and answers session checks from the reverse proxy.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger, err = cmdutil.NewLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cmdutil.SetRuntime(cfg, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.SilenceUsage = true

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml); environment variables take precedence")
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().String("server-url", "", "Public base URL used in emailed links (env: SERVER_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")

	// Flags override the environment once set on the command line.
	cobra.CheckErr(viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("db-url")))
	cobra.CheckErr(viper.BindPFlag("server_addr", rootCmd.PersistentFlags().Lookup("server-addr")))
	cobra.CheckErr(viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server-url")))
	cobra.CheckErr(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))

	// Add subcommands
	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(sessions.SessionsCmd)
	rootCmd.AddCommand(catalog.CatalogCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
