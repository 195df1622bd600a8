package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MinBcryptCost is the lowest bcrypt work factor accepted for stored passwords.
const MinBcryptCost = 12

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN). Either a postgres:// URL or a SQLite file path.
	DatabaseURL string

	// Server bind address (host:port)
	ServerAddr string

	// Public base URL, used when building links in outgoing email
	ServerURL string

	// Maximum database connection pool size
	MaxDBConnections int

	// Enable debug logging
	Debug bool

	// Path to the application catalog (.json, .yaml or .yml)
	AppsFile string

	// Origins allowed to call the API with credentials. Empty disables CORS.
	CORSAllowOrigins []string

	Session       SessionConfig
	Mail          MailConfig
	Admin         AdminConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	Log           LogConfig
	Observability ObservabilityConfig
}

// SessionConfig controls the session cookie and its server-side record.
type SessionConfig struct {
	Secret       string
	CookieName   string
	CookieDomain string
	CookieSecure bool
	TTL          time.Duration
}

// MailConfig holds SMTP delivery settings.
type MailConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Secure          bool
	User            string
	Password        string
	From            string
	AdminRecipients []string
}

// AdminConfig seeds an administrator account at startup when both fields are set.
type AdminConfig struct {
	Email    string
	Password string
}

// Enabled reports whether admin bootstrap credentials were supplied.
func (a AdminConfig) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

// SecurityConfig holds credential and token parameters.
type SecurityConfig struct {
	BcryptCost         int
	TempPasswordLength int
	ResetTokenTTL      time.Duration
}

// RateLimitConfig throttles login and password-reset requests.
// RedisURL selects the shared Redis limiter; otherwise limits are kept in memory.
type RateLimitConfig struct {
	RedisURL string
	Attempts int
	Window   time.Duration
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// ObservabilityConfig configures the OpenTelemetry trace exporter.
// Tracing is disabled when OTLPEndpoint is empty.
type ObservabilityConfig struct {
	OTLPEndpoint string
	OTLPProtocol string
	ServiceName  string
	SampleRatio  float64 // fraction of root traces kept, 0..1
}

func setDefaults() {
	viper.SetDefault("database_url", "")
	viper.SetDefault("database_path", "data/modiniapps.sqlite")
	viper.SetDefault("server_addr", "")
	viper.SetDefault("port", "3000")
	viper.SetDefault("server_url", "http://localhost:3000")
	viper.SetDefault("max_db_connections", 25)
	viper.SetDefault("debug", false)
	viper.SetDefault("apps_file", "apps.json")
	viper.SetDefault("cors_allow_origins", "")

	viper.SetDefault("session_secret", "")
	viper.SetDefault("session_name", "modiniapps.sid")
	viper.SetDefault("session_ttl", 7*24*time.Hour)
	viper.SetDefault("cookie_domain", "")
	viper.SetDefault("cookie_secure", false)

	viper.SetDefault("mail.enabled", true)
	viper.SetDefault("mail.host", "")
	viper.SetDefault("mail.port", 587)
	viper.SetDefault("mail.secure", false)
	viper.SetDefault("mail.user", "")
	viper.SetDefault("mail.password", "")
	viper.SetDefault("mail.from", "Modini Apps <no-reply@modiniapps.local>")
	viper.SetDefault("mail.admin_recipients", "")

	viper.SetDefault("admin.email", "")
	viper.SetDefault("admin.password", "")

	viper.SetDefault("bcrypt_cost", MinBcryptCost)
	viper.SetDefault("temp_password_length", 16)
	viper.SetDefault("password_reset_ttl", time.Hour)

	viper.SetDefault("redis_url", "")
	viper.SetDefault("rate_limit.attempts", 10)
	viper.SetDefault("rate_limit.window", 15*time.Minute)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	viper.SetDefault("otel.exporter.otlp.endpoint", "")
	viper.SetDefault("otel.exporter.otlp.protocol", "http/protobuf")
	viper.SetDefault("otel.service.name", "modiniapps")
	viper.SetDefault("otel.traces.sampler.arg", 1.0)
}

// Load reads configuration from an optional .env file, an optional config file
// registered with viper, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	setDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:      viper.GetString("database_url"),
		ServerAddr:       viper.GetString("server_addr"),
		ServerURL:        strings.TrimRight(viper.GetString("server_url"), "/"),
		MaxDBConnections: viper.GetInt("max_db_connections"),
		Debug:            viper.GetBool("debug"),
		AppsFile:         viper.GetString("apps_file"),
		CORSAllowOrigins: splitList(viper.GetString("cors_allow_origins")),
		Session: SessionConfig{
			Secret:       viper.GetString("session_secret"),
			CookieName:   viper.GetString("session_name"),
			CookieDomain: viper.GetString("cookie_domain"),
			CookieSecure: viper.GetBool("cookie_secure"),
			TTL:          viper.GetDuration("session_ttl"),
		},
		Mail: MailConfig{
			Enabled:         viper.GetBool("mail.enabled"),
			Host:            viper.GetString("mail.host"),
			Port:            viper.GetInt("mail.port"),
			Secure:          viper.GetBool("mail.secure"),
			User:            viper.GetString("mail.user"),
			Password:        viper.GetString("mail.password"),
			From:            viper.GetString("mail.from"),
			AdminRecipients: splitList(viper.GetString("mail.admin_recipients")),
		},
		Admin: AdminConfig{
			Email:    strings.ToLower(strings.TrimSpace(viper.GetString("admin.email"))),
			Password: viper.GetString("admin.password"),
		},
		Security: SecurityConfig{
			BcryptCost:         viper.GetInt("bcrypt_cost"),
			TempPasswordLength: viper.GetInt("temp_password_length"),
			ResetTokenTTL:      viper.GetDuration("password_reset_ttl"),
		},
		RateLimit: RateLimitConfig{
			RedisURL: viper.GetString("redis_url"),
			Attempts: viper.GetInt("rate_limit.attempts"),
			Window:   viper.GetDuration("rate_limit.window"),
		},
		Log: LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint: viper.GetString("otel.exporter.otlp.endpoint"),
			OTLPProtocol: viper.GetString("otel.exporter.otlp.protocol"),
			ServiceName:  viper.GetString("otel.service.name"),
			SampleRatio:  viper.GetFloat64("otel.traces.sampler.arg"),
		},
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = viper.GetString("database_path")
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":" + viper.GetString("port")
	}
	if cfg.Debug && cfg.Log.Level == "info" {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that Load cannot default away.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL or DATABASE_PATH is required")
	}
	if c.ServerURL == "" {
		return fmt.Errorf("SERVER_URL is required")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_NAME is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Session.Secret == "" && !c.Debug {
		return fmt.Errorf("SESSION_SECRET is required unless DEBUG is enabled")
	}
	if c.Security.BcryptCost < MinBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be at least %d", MinBcryptCost)
	}
	if c.Security.TempPasswordLength < 12 {
		return fmt.Errorf("TEMP_PASSWORD_LENGTH must be at least 12")
	}
	if c.Security.ResetTokenTTL <= 0 {
		return fmt.Errorf("PASSWORD_RESET_TTL must be positive")
	}
	if c.RateLimit.Attempts <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_ATTEMPTS and RATE_LIMIT_WINDOW must be positive")
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be between 0 and 1")
	}
	if c.Mail.Enabled && c.Mail.Host == "" {
		// Delivery cannot work without a host; fall back to logging only.
		c.Mail.Enabled = false
	}
	return nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
