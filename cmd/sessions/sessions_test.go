package sessions

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/markgwharry/modiniapps/cmd/cmdutil"
	"github.com/markgwharry/modiniapps/internal/config"
	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/services/iam"
)

func setupRuntime(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DatabaseURL:      filepath.Join(dir, "modiniapps.sqlite"),
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
	cmdutil.SetRuntime(cfg, nil)
	t.Cleanup(func() { cmdutil.SetRuntime(nil, nil) })
	return cfg
}

func run(args ...string) error {
	emailFlag = ""
	SessionsCmd.SetArgs(args)
	SessionsCmd.SetOut(io.Discard)
	SessionsCmd.SetErr(io.Discard)
	return SessionsCmd.ExecuteContext(context.Background())
}

func countSessions(t *testing.T, cfg *config.Config, userID int64, revoked bool) int {
	t.Helper()
	ctx := context.Background()
	bundle, err := cmdutil.NewServiceBundle(ctx, cfg, cmdutil.ServiceOptions{})
	require.NoError(t, err)
	defer bundle.Close()

	n, err := bundle.DB.NewSelect().
		Model((*models.Session)(nil)).
		Where("user_id = ?", userID).
		Where("revoked = ?", revoked).
		Count(ctx)
	require.NoError(t, err)
	return n
}

func TestRevokeAndPrune(t *testing.T) {
	cfg := setupRuntime(t)
	ctx := context.Background()

	bundle, err := cmdutil.NewServiceBundle(ctx, cfg, cmdutil.ServiceOptions{})
	require.NoError(t, err)
	user, err := bundle.Service.CreateUser(ctx, iam.NewUser{Email: "ops@example.com", Password: "ops-password", Approved: true})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, _, err := bundle.Service.CreateSession(ctx, user.ID, iam.SessionMeta{})
		require.NoError(t, err)
	}
	bundle.Close()

	require.NoError(t, run("revoke", "--email", "OPS@example.com"))
	assert.Equal(t, 0, countSessions(t, cfg, user.ID, false))
	assert.Equal(t, 2, countSessions(t, cfg, user.ID, true))

	require.NoError(t, run("prune"))
	assert.Equal(t, 0, countSessions(t, cfg, user.ID, true))
}

func TestRevoke_Errors(t *testing.T) {
	setupRuntime(t)

	err := run("revoke")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--email flag is required")

	err = run("revoke", "--email", "ghost@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, iam.ErrUserNotFound)
}
