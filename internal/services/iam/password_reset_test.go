package iam

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markgwharry/modiniapps/internal/auth"
)

func TestRequestReset_SameMessageForEveryone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.registerAndApprove(t, "approved@example.com")
	_, err := h.svc.Register(ctx, "pending@example.com", "registration-pw")
	require.NoError(t, err)

	for _, email := range []string{"approved@example.com", "pending@example.com", "nobody@example.com"} {
		msg, err := h.svc.RequestReset(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, MsgResetRequested, msg, email)
	}

	// Only the approved account was emailed.
	assert.Equal(t, 1, h.notifier.count("reset"))
	assert.Equal(t, "approved@example.com", h.notifier.last(t, "reset").user.Email)
}

func TestRequestReset_AdminIsEligible(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin, err := h.svc.CreateUser(ctx, NewUser{Email: "admin@example.com", Password: "admin-password", Admin: true})
	require.NoError(t, err)
	require.NoError(t, h.users.SetApproved(ctx, admin.ID, false))

	_, err = h.svc.RequestReset(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, h.notifier.count("reset"))
}

func TestRequestReset_StoresOnlyTokenHash(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user, _ := h.registerAndApprove(t, "hash@example.com")

	_, err := h.svc.RequestReset(ctx, "hash@example.com")
	require.NoError(t, err)
	token := h.notifier.last(t, "reset").secret

	tokens := h.resetTokens(t, user.ID)
	require.Len(t, tokens, 1)
	assert.NotEqual(t, token, tokens[0].Token)
	assert.Equal(t, auth.HashToken(token), tokens[0].Token)
	assert.WithinDuration(t, h.clock.Now().Add(time.Hour), tokens[0].ExpiresAt, time.Second)
}

func TestValidateResetToken_Reasons(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	v, err := h.svc.ValidateResetToken(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, TokenValidation{Reason: ReasonTokenRequired}, v)

	v, err = h.svc.ValidateResetToken(ctx, "not-a-real-token")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, ReasonTokenUnknown, v.Reason)

	user, _ := h.registerAndApprove(t, "valid@example.com")
	_, err = h.svc.RequestReset(ctx, "valid@example.com")
	require.NoError(t, err)
	token := h.notifier.last(t, "reset").secret

	v, err = h.svc.ValidateResetToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, user.ID, v.UserID)
	assert.Empty(t, v.Reason)
}

func TestResetPassword_SingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user, oldPassword := h.registerAndApprove(t, "single@example.com")
	_, _, err := h.svc.CreateSession(ctx, user.ID, SessionMeta{})
	require.NoError(t, err)

	_, err = h.svc.RequestReset(ctx, "single@example.com")
	require.NoError(t, err)
	token := h.notifier.last(t, "reset").secret

	msg, err := h.svc.ResetPassword(ctx, token, "fresh-password")
	require.NoError(t, err)
	assert.Equal(t, MsgResetSucceeded, msg)

	_, err = h.svc.Authenticate(ctx, "single@example.com", oldPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.svc.Authenticate(ctx, "single@example.com", "fresh-password")
	assert.NoError(t, err)

	_, err = h.svc.ResetPassword(ctx, token, "another-password")
	var tokenErr *TokenInvalidError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, ReasonTokenUsed, tokenErr.Reason)

	// The used token is retained.
	tokens := h.resetTokens(t, user.ID)
	require.Len(t, tokens, 1)
	assert.True(t, tokens[0].Used)

	// Existing sessions end with the reset.
	sessions, err := h.sessions.ListByUserID(ctx, user.ID)
	require.NoError(t, err)
	for _, s := range sessions {
		assert.True(t, s.Revoked)
	}
}

func TestResetPassword_Expired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.registerAndApprove(t, "late@example.com")
	_, err := h.svc.RequestReset(ctx, "late@example.com")
	require.NoError(t, err)
	token := h.notifier.last(t, "reset").secret

	h.clock.Advance(time.Hour + time.Minute)

	v, err := h.svc.ValidateResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, ReasonTokenExpired, v.Reason)

	_, err = h.svc.ResetPassword(ctx, token, "fresh-password")
	var tokenErr *TokenInvalidError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, ReasonTokenExpired, tokenErr.Reason)
}

func TestResetPassword_SecondRequestInvalidatesFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.registerAndApprove(t, "twice@example.com")

	_, err := h.svc.RequestReset(ctx, "twice@example.com")
	require.NoError(t, err)
	first := h.notifier.last(t, "reset").secret
	_, err = h.svc.RequestReset(ctx, "twice@example.com")
	require.NoError(t, err)
	second := h.notifier.last(t, "reset").secret
	require.NotEqual(t, first, second)

	v, err := h.svc.ValidateResetToken(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, ReasonTokenUnknown, v.Reason)

	_, err = h.svc.ResetPassword(ctx, second, "fresh-password")
	assert.NoError(t, err)
}

func TestResetPassword_WeakPasswordLeavesTokenUnused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user, password := h.registerAndApprove(t, "weak@example.com")
	_, err := h.svc.RequestReset(ctx, "weak@example.com")
	require.NoError(t, err)
	token := h.notifier.last(t, "reset").secret

	_, err = h.svc.ResetPassword(ctx, token, "short")
	var weak *WeakPasswordError
	require.ErrorAs(t, err, &weak)
	assert.Equal(t, MsgPasswordTooShort, weak.Message)

	v, err := h.svc.ValidateResetToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, user.ID, v.UserID)

	_, err = h.svc.Authenticate(ctx, "weak@example.com", password)
	assert.NoError(t, err)
}

func TestResetPassword_LengthCountsCharacters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, password := h.registerAndApprove(t, "runes@example.com")
	_, err := h.svc.RequestReset(ctx, "runes@example.com")
	require.NoError(t, err)
	token := h.notifier.last(t, "reset").secret

	tests := []struct {
		name     string
		password string
		want     string
	}{
		// 12 bytes, 4 characters
		{name: "four multibyte characters", password: "密码密码", want: MsgPasswordTooShort},
		{name: "over 72 bytes", password: strings.Repeat("a", 80), want: MsgPasswordTooLong},
		{name: "multibyte over 72 bytes", password: strings.Repeat("密", 25), want: MsgPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.ResetPassword(ctx, token, tt.password)
			var weak *WeakPasswordError
			require.ErrorAs(t, err, &weak)
			assert.Equal(t, tt.want, weak.Message)
		})
	}

	v, err := h.svc.ValidateResetToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	_, err = h.svc.Authenticate(ctx, "runes@example.com", password)
	require.NoError(t, err)

	_, err = h.svc.ResetPassword(ctx, token, "密码密码密码密码")
	require.NoError(t, err)
	_, err = h.svc.Authenticate(ctx, "runes@example.com", "密码密码密码密码")
	assert.NoError(t, err)
}

func TestResetPassword_InvalidTokenBeforePasswordCheck(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.ResetPassword(context.Background(), "", "short")
	var tokenErr *TokenInvalidError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, ReasonTokenRequired, tokenErr.Reason)
}
