package cmdutil

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/auth"
	"github.com/markgwharry/modiniapps/internal/catalog"
	"github.com/markgwharry/modiniapps/internal/config"
	"github.com/markgwharry/modiniapps/internal/db/bunx"
	"github.com/markgwharry/modiniapps/internal/logging"
	"github.com/markgwharry/modiniapps/internal/migrations"
	"github.com/markgwharry/modiniapps/internal/notify"
	"github.com/markgwharry/modiniapps/internal/repository"
	"github.com/markgwharry/modiniapps/internal/services/iam"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

// ServiceOptions controls how commands construct the IAM service.
type ServiceOptions struct {
	Logger  *zap.Logger
	Metrics *telemetry.Metrics

	// RequireCatalog fails construction when the apps file cannot be
	// loaded. Commands that never look at apps leave it false and run
	// with an empty catalog instead.
	RequireCatalog bool
}

// ServiceBundle bundles the service with its underlying DB connection and
// catalog so callers can reuse them.
type ServiceBundle struct {
	Service iam.Service
	DB      *bun.DB
	Catalog *catalog.Store
	Mailer  *notify.Mailer
}

// Close releases the underlying database connection.
func (b *ServiceBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// OpenDB connects using the configured DSN and pool size.
func OpenDB(cfg *config.Config) (*bun.DB, error) {
	db, err := bunx.NewDB(cfg.DatabaseURL, bunx.WithMaxOpenConns(cfg.MaxDBConnections))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewMailer builds the notifier from the mail settings. With mail disabled
// messages are logged and dropped.
func NewMailer(cfg *config.Config, logger *zap.Logger, metrics *telemetry.Metrics) (*notify.Mailer, error) {
	var transport notify.Transport
	if cfg.Mail.Enabled {
		smtp, err := notify.NewSMTPTransport(cfg.Mail)
		if err != nil {
			return nil, err
		}
		transport = smtp
	}
	return notify.NewMailer(notify.MailerConfig{
		Enabled:         cfg.Mail.Enabled,
		AdminRecipients: cfg.Mail.AdminRecipients,
		BaseURL:         cfg.ServerURL,
		ResetTokenTTL:   cfg.Security.ResetTokenTTL,
	}, transport, logger, metrics)
}

// NewServiceBundle centralizes IAM service construction for commands.
// It connects, applies pending migrations, loads the catalog and wires
// repositories, the bcrypt hasher and the mailer.
func NewServiceBundle(ctx context.Context, cfg *config.Config, opts ServiceOptions) (*ServiceBundle, error) {
	logger := logging.OrNop(opts.Logger)

	store, err := catalog.NewStore(cfg.AppsFile)
	if err != nil {
		if opts.RequireCatalog {
			return nil, fmt.Errorf("load app catalog: %w", err)
		}
		logger.Warn("app catalog unavailable, continuing with an empty catalog",
			zap.String("path", cfg.AppsFile), zap.Error(err))
		store = catalog.NewStaticStore(nil)
	}

	mailer, err := NewMailer(cfg, logger, opts.Metrics)
	if err != nil {
		return nil, fmt.Errorf("configure mailer: %w", err)
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := migrations.Apply(ctx, db); err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	svc, err := iam.NewIAMService(iam.IAMServiceDependencies{
		Users:       repository.NewBunUserRepository(db),
		Sessions:    repository.NewBunSessionRepository(db),
		ResetTokens: repository.NewBunPasswordResetTokenRepository(db),
		Hasher:      auth.NewBcryptHasher(cfg.Security.BcryptCost),
		Notifier:    mailer,
		Catalog:     store,
		Metrics:     opts.Metrics,
		Logger:      logger,
	}, iam.IAMServiceConfig{Config: cfg})
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to create IAM service: %w", err)
	}

	return &ServiceBundle{
		Service: svc,
		DB:      db,
		Catalog: store,
		Mailer:  mailer,
	}, nil
}
