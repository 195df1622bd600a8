package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markgwharry/modiniapps/cmd/cmdutil"
	"github.com/markgwharry/modiniapps/internal/catalog"
	"github.com/markgwharry/modiniapps/internal/ratelimit"
	"github.com/markgwharry/modiniapps/internal/server"
	"github.com/markgwharry/modiniapps/internal/services/iam"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

const (
	metricsNamespace     = "modiniapps"
	sessionPruneInterval = time.Hour
	shutdownTimeout      = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway HTTP server",
	Long: `Applies pending migrations, seeds the admin account when ADMIN_EMAIL and
ADMIN_PASSWORD are set, and serves the gateway API.

SIGHUP reloads the app catalog from APPS_FILE without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := telemetry.Init(ctx, cfg.Observability, logger)
		if err != nil {
			return fmt.Errorf("initialize tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Warn("tracing shutdown failed", zap.Error(err))
			}
		}()

		metrics := telemetry.NewMetrics(metricsNamespace)

		bundle, err := cmdutil.NewServiceBundle(ctx, cfg, cmdutil.ServiceOptions{
			Logger:         logger,
			Metrics:        metrics,
			RequireCatalog: true,
		})
		if err != nil {
			return err
		}
		defer bundle.Close()
		logger.Info("connected to database", zap.Int("apps", len(bundle.Catalog.Apps())))

		if cfg.Admin.Enabled() {
			user, created, err := bundle.Service.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			logger.Info("admin account ready", zap.String("email", user.Email), zap.Bool("created", created))
		} else {
			logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seeding")
		}

		limiter, closeLimiter, err := newLimiter()
		if err != nil {
			return err
		}
		defer closeLimiter()

		router := server.NewRouter(server.RouterOptions{
			IAMService: bundle.Service,
			Cfg:        cfg,
			Limiter:    limiter,
			Metrics:    metrics,
			Logger:     logger,
		})
		srv := server.NewHTTPServer(cfg.ServerAddr, router)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("starting server", zap.String("addr", cfg.ServerAddr), zap.String("url", cfg.ServerURL))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			pruneSessions(gctx, bundle.Service, sessionPruneInterval)
			return nil
		})
		g.Go(func() error {
			reloadCatalogOnHangup(gctx, bundle.Catalog)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down gracefully")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			logger.Info("server stopped")
			return nil
		})

		return g.Wait()
	},
}

// newLimiter selects the Redis limiter when REDIS_URL is set and the
// in-memory one otherwise.
func newLimiter() (ratelimit.Limiter, func(), error) {
	limits := ratelimit.Config{MaxAttempts: cfg.RateLimit.Attempts, Window: cfg.RateLimit.Window}
	if cfg.RateLimit.RedisURL == "" {
		logger.Info("using in-memory rate limiter")
		return ratelimit.NewMemoryLimiter(limits, ratelimit.DefaultMemoryKeys), func() {}, nil
	}

	client, err := ratelimit.NewRedisClient(cfg.RateLimit.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("configure redis rate limiter: %w", err)
	}
	logger.Info("using redis rate limiter")
	return ratelimit.NewRedisLimiter(client, limits), func() { _ = client.Close() }, nil
}

// pruneSessions deletes expired and revoked sessions once at start and
// then every interval until ctx ends.
func pruneSessions(ctx context.Context, svc iam.Service, interval time.Duration) {
	prune := func() {
		n, err := svc.PruneSessions(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("session prune failed", zap.Error(err))
			}
			return
		}
		if n > 0 {
			logger.Info("pruned sessions", zap.Int64("count", n))
		}
	}

	prune()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			prune()
		case <-ctx.Done():
			return
		}
	}
}

// reloadCatalogOnHangup swaps in a freshly loaded catalog on SIGHUP.
// A file that fails to load or validate keeps the previous catalog.
func reloadCatalogOnHangup(ctx context.Context, store *catalog.Store) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for {
		select {
		case sig := <-hangup:
			apps, err := store.Reload()
			if err != nil {
				logger.Error("catalog reload failed, keeping previous catalog",
					zap.String("signal", sig.String()), zap.String("path", store.Path()), zap.Error(err))
				continue
			}
			logger.Info("catalog reloaded", zap.String("path", store.Path()), zap.Int("apps", len(apps)))
		case <-ctx.Done():
			return
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
