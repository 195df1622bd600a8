package iam

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/auth"
)

// SessionAuthenticator authenticates requests using the session cookie.
//
//  1. Extract the session cookie; (nil, nil) if absent
//  2. Hash the cookie value and look the session up
//  3. Reject revoked or expired sessions as unauthenticated
//  4. Reload the user; a deleted user is unauthenticated
//  5. Slide the session expiry forward
//  6. Construct the Principal with the filtered catalog
type SessionAuthenticator struct {
	svc        *iamService
	cookieName string
	ttl        time.Duration
}

// newSessionAuthenticator creates a session authenticator reading cookieName.
func newSessionAuthenticator(svc *iamService, cookieName string, ttl time.Duration) *SessionAuthenticator {
	return &SessionAuthenticator{svc: svc, cookieName: cookieName, ttl: ttl}
}

// Authenticate resolves the session cookie into a Principal.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	raw := req.Cookie(a.cookieName)
	if raw == "" {
		return nil, nil
	}

	session, err := a.svc.sessions.GetByTokenHash(ctx, auth.HashToken(raw))
	if err != nil {
		return nil, storageErr("load session", err)
	}
	now := a.svc.now()
	if session == nil || session.Revoked || auth.IsExpired(session.ExpiresAt, now) {
		return nil, nil
	}

	user, err := a.svc.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, storageErr("load session user", err)
	}
	if user == nil {
		return nil, nil
	}

	expiresAt := auth.CalculateExpiry(now, a.ttl)
	if err := a.svc.sessions.Touch(ctx, session.ID, expiresAt); err != nil {
		// The session is still valid for this request; only the slide failed.
		a.svc.logger.Warn("failed to extend session", zap.Error(err))
		expiresAt = session.ExpiresAt
	}

	user = Sanitize(user)
	return &Principal{
		User:      user,
		SessionID: session.ID,
		ExpiresAt: expiresAt,
		Apps:      FilterCatalog(user, a.svc.Catalog()),
	}, nil
}
