package cmdutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/markgwharry/modiniapps/internal/config"
	"github.com/markgwharry/modiniapps/internal/services/iam"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DatabaseURL:      filepath.Join(dir, "data", "modiniapps.sqlite"),
		ServerURL:        "http://localhost:3000",
		MaxDBConnections: 5,
		AppsFile:         filepath.Join(dir, "apps.json"),
		Session:          config.SessionConfig{CookieName: "test.sid", TTL: time.Hour},
		Security: config.SecurityConfig{
			BcryptCost:         bcrypt.MinCost,
			TempPasswordLength: 16,
			ResetTokenTTL:      time.Hour,
		},
	}
}

func TestNewServiceBundle_MigratesAndServes(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.AppsFile, []byte(`[{"slug":"crm","name":"CRM","url":"https://crm.example.com"}]`), 0o600))

	ctx := context.Background()
	bundle, err := NewServiceBundle(ctx, cfg, ServiceOptions{RequireCatalog: true})
	require.NoError(t, err)
	defer bundle.Close()

	assert.Equal(t, []string{"crm"}, bundle.Catalog.Apps().Slugs())

	user, err := bundle.Service.CreateUser(ctx, iam.NewUser{
		Email:    "Ops@Example.com",
		Password: "ops-password",
		Approved: true,
		Apps:     []string{"crm"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", user.Email)
	assert.Equal(t, []string{"crm"}, user.AllowedApps)

	_, err = bundle.Service.Authenticate(ctx, "ops@example.com", "ops-password")
	require.NoError(t, err)
}

func TestNewServiceBundle_MissingCatalog(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	_, err := NewServiceBundle(ctx, cfg, ServiceOptions{RequireCatalog: true})
	require.Error(t, err)

	bundle, err := NewServiceBundle(ctx, cfg, ServiceOptions{})
	require.NoError(t, err)
	defer bundle.Close()
	assert.Empty(t, bundle.Catalog.Apps())
}

func TestRuntime(t *testing.T) {
	cfg := &config.Config{ServerURL: "http://example.test"}
	SetRuntime(cfg, nil)
	t.Cleanup(func() { SetRuntime(nil, nil) })

	got, logger := Runtime()
	assert.Same(t, cfg, got)
	assert.NotNil(t, logger)
}
