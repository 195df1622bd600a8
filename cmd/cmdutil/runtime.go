// Package cmdutil holds the wiring shared by modiniapps subcommands.
package cmdutil

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/config"
	"github.com/markgwharry/modiniapps/internal/logging"
)

// DefaultTimeout bounds one-shot CLI operations.
const DefaultTimeout = 30 * time.Second

var (
	runtimeConfig *config.Config
	runtimeLogger *zap.Logger
)

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level: cfg.Log.Level,
		Dev:   cfg.Debug || cfg.Log.Format == "console",
	})
}

// SetRuntime records the configuration loaded by the root command.
func SetRuntime(cfg *config.Config, logger *zap.Logger) {
	runtimeConfig = cfg
	runtimeLogger = logger
}

// Runtime returns the configuration and logger of the running command.
// Subcommands run after the root PersistentPreRunE, so both are set.
func Runtime() (*config.Config, *zap.Logger) {
	return runtimeConfig, logging.OrNop(runtimeLogger)
}

// CommandContext returns a context bounded by DefaultTimeout.
func CommandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, DefaultTimeout)
}
