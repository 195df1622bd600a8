package iam

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookieRequest(name, value string) AuthRequest {
	return AuthRequest{
		Headers: http.Header{},
		Cookies: []*http.Cookie{{Name: name, Value: value}},
	}
}

func TestAuthenticateRequest_NoCookie(t *testing.T) {
	h := newHarness(t)
	principal, err := h.svc.AuthenticateRequest(context.Background(), AuthRequest{})
	require.NoError(t, err)
	assert.Nil(t, principal)

	principal, err = h.svc.AuthenticateRequest(context.Background(), cookieRequest("other", "value"))
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestAuthenticateRequest_ValidSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user, _ := h.registerAndApprove(t, "session@example.com", "wiki", "unknown-app")

	session, token, err := h.svc.CreateSession(ctx, user.ID, SessionMeta{UserAgent: "go-test", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEqual(t, token, session.TokenHash)

	h.clock.Advance(time.Hour)
	principal, err := h.svc.AuthenticateRequest(ctx, cookieRequest(testCookieName, token))
	require.NoError(t, err)
	require.NotNil(t, principal)

	assert.Equal(t, user.ID, principal.UserID())
	assert.Equal(t, session.ID, principal.SessionID)
	assert.False(t, principal.IsAdmin())
	assert.Empty(t, principal.User.PasswordHash)
	// Entitlements outside the catalog are ignored.
	assert.Equal(t, []string{"wiki"}, principal.Apps.Slugs())
	assert.True(t, principal.CanAccess("wiki"))
	assert.False(t, principal.CanAccess("crm"))

	// Rolling expiry: the session now ends a full TTL after this request.
	assert.WithinDuration(t, h.clock.Now().Add(24*time.Hour), principal.ExpiresAt, time.Second)
}

func TestAuthenticateRequest_ReflectsLatestEntitlements(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user, _ := h.registerAndApprove(t, "fresh@example.com", "crm")
	_, token, err := h.svc.CreateSession(ctx, user.ID, SessionMeta{})
	require.NoError(t, err)

	_, err = h.svc.SetEntitlements(ctx, user.ID, []string{"hr", "wiki"})
	require.NoError(t, err)

	principal, err := h.svc.AuthenticateRequest(ctx, cookieRequest(testCookieName, token))
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.Equal(t, []string{"wiki", "hr"}, principal.Apps.Slugs())
}

func TestAuthenticateRequest_Unauthenticated(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, h *harness, userID int64, sessionID string)
	}{
		{
			name: "revoked session",
			setup: func(t *testing.T, h *harness, userID int64, sessionID string) {
				require.NoError(t, h.svc.RevokeSession(context.Background(), sessionID))
			},
		},
		{
			name: "expired session",
			setup: func(t *testing.T, h *harness, userID int64, sessionID string) {
				h.clock.Advance(25 * time.Hour)
			},
		},
		{
			name: "deleted user",
			setup: func(t *testing.T, h *harness, userID int64, sessionID string) {
				// Remove only the user row so the session survives.
				_, err := h.db.ExecContext(context.Background(), "PRAGMA foreign_keys = OFF")
				require.NoError(t, err)
				_, err = h.db.ExecContext(context.Background(), "DELETE FROM users WHERE id = ?", userID)
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			user, _ := h.registerAndApprove(t, "gone@example.com")
			session, token, err := h.svc.CreateSession(ctx, user.ID, SessionMeta{})
			require.NoError(t, err)

			tt.setup(t, h, user.ID, session.ID)

			principal, err := h.svc.AuthenticateRequest(ctx, cookieRequest(testCookieName, token))
			require.NoError(t, err)
			assert.Nil(t, principal)
		})
	}
}

func TestAuthenticateRequest_UnknownToken(t *testing.T) {
	h := newHarness(t)
	principal, err := h.svc.AuthenticateRequest(context.Background(), cookieRequest(testCookieName, "forged"))
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestPruneSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user, _ := h.registerAndApprove(t, "prune@example.com")

	live, _, err := h.svc.CreateSession(ctx, user.ID, SessionMeta{})
	require.NoError(t, err)
	dead, _, err := h.svc.CreateSession(ctx, user.ID, SessionMeta{})
	require.NoError(t, err)
	require.NoError(t, h.svc.RevokeSession(ctx, dead.ID))

	n, err := h.svc.PruneSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sessions, err := h.sessions.ListByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, live.ID, sessions[0].ID)

	revoked, err := h.svc.RevokeUserSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), revoked)
}
