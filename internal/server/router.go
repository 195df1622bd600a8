package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/config"
	"github.com/markgwharry/modiniapps/internal/logging"
	"github.com/markgwharry/modiniapps/internal/middleware"
	"github.com/markgwharry/modiniapps/internal/ratelimit"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

// DefaultCookieName is used when the configuration leaves SESSION_NAME empty.
const DefaultCookieName = "modiniapps.sid"

// RouterOptions controls the construction of the gateway HTTP router.
// IAMService is required; every other field has a usable zero value.
type RouterOptions struct {
	IAMService    gatewayService // Compile-time verified IAM service contract
	Cfg           *config.Config
	Limiter       ratelimit.Limiter
	Metrics       *telemetry.Metrics
	Logger        *zap.Logger
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
	Now           func() time.Time
	ExtraRoutes   func(chi.Router)
}

// CORSOptions returns the credentialed CORS policy for origins.
func CORSOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Forwarded-User", "X-Forwarded-User-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CookieConfigFrom derives the session cookie attributes from cfg.
func CookieConfigFrom(cfg *config.Config) middleware.CookieConfig {
	if cfg == nil {
		return middleware.CookieConfig{Name: DefaultCookieName}
	}
	name := cfg.Session.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	return middleware.CookieConfig{
		Name:   name,
		Domain: cfg.Session.CookieDomain,
		Secure: cfg.Session.CookieSecure,
	}
}

// NewRouter assembles a chi.Router with shared middleware, the optional
// CORS policy, and the gateway handlers mounted.
//
// Health and metrics sit outside the session middleware so health checks never
// touch the database.
func NewRouter(opts RouterOptions) chi.Router {
	logger := logging.OrNop(opts.Logger)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	deps := &handlerDeps{
		iam:     opts.IAMService,
		cookie:  CookieConfigFrom(opts.Cfg),
		limiter: opts.Limiter,
		metrics: opts.Metrics,
		logger:  logger,
		now:     now,
	}
	if opts.Cfg != nil && opts.Cfg.Session.Secret != "" {
		deps.forwardedSecret = []byte(opts.Cfg.Session.Secret)
	}

	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestTelemetry(logger, opts.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)

	if opts.Cfg != nil && len(opts.Cfg.CORSAllowOrigins) > 0 {
		r.Use(cors.Handler(CORSOptions(opts.Cfg.CORSAllowOrigins)))
	}

	// Apply custom middleware passed from the caller.
	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.PrincipalMiddleware(opts.IAMService, deps.cookie, logger))

		// Public auth endpoints
		r.Post("/auth/register", HandleRegister(deps))
		r.Post("/auth/login", HandleLogin(deps))
		r.Post("/auth/logout", HandleLogout(deps))
		r.Get("/auth/logout", HandleLogout(deps))
		r.Post("/auth/password/forgot", HandleForgotPassword(deps))
		r.Get("/auth/password/reset", HandleValidateResetToken(deps))
		r.Post("/auth/password/reset", HandleResetPassword(deps))
		r.Get("/api/auth/session", HandleSession(deps))

		// Signed-in users
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/api/apps", HandleListApps(deps))
			r.Get("/apps/{slug}", HandleLaunchApp(deps))
			r.Get("/api/profile", HandleGetProfile(deps))
			r.Put("/api/profile", HandleUpdateProfile(deps))
			r.Put("/api/profile/password", HandleChangePassword(deps))
		})

		// Administrators
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/users", HandleListUsers(deps))
			r.Get("/users/pending", HandleListPendingUsers(deps))
			r.Post("/users/{id}/approve", HandleApproveUser(deps))
			r.Post("/users/{id}/unapprove", HandleUnapproveUser(deps))
			r.Post("/users/{id}/reject", HandleRejectUser(deps))
			r.Post("/users/{id}/make-admin", HandleSetAdmin(deps, true))
			r.Post("/users/{id}/remove-admin", HandleSetAdmin(deps, false))
			r.Put("/users/{id}/apps", HandleSetUserApps(deps))
		})
	})

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}

// NewHTTPServer wraps handler with the gateway's timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
