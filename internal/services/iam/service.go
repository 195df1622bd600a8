package iam

import (
	"context"

	"github.com/markgwharry/modiniapps/internal/catalog"
	"github.com/markgwharry/modiniapps/internal/db/models"
)

// Service provides all identity and entitlement operations of the gateway.
//
// Every user returned crosses the boundary sanitized: PasswordHash is empty
// and AllowedApps holds the sorted entitlement set.
type Service interface {
	// =========================================================================
	// Authentication (Request Path)
	// =========================================================================

	// AuthenticateRequest tries all registered authenticators in order.
	//
	// Returns:
	//   - (principal, nil): a live session for an existing user
	//   - (nil, nil): no usable credentials (unauthenticated request)
	//   - (nil, error): the store could not be read
	AuthenticateRequest(ctx context.Context, req AuthRequest) (*Principal, error)

	// =========================================================================
	// Accounts
	// =========================================================================

	// Register creates a pending, non-admin account with no entitlements.
	// Returns ErrAccountExists when the normalized email is taken.
	Register(ctx context.Context, email, password string) (*models.User, error)

	// Authenticate checks credentials. Unknown email and wrong password both
	// yield ErrInvalidCredentials; ErrPendingApproval is only returned after
	// the password verified.
	Authenticate(ctx context.Context, email, password string) (*models.User, error)

	// ChangePassword replaces the password after verifying current.
	// Other sessions of the user are revoked; keepSessionID survives.
	ChangePassword(ctx context.Context, userID int64, current, next, keepSessionID string) (*models.User, error)

	// UpdateProfile validates and stores the editable profile fields.
	UpdateProfile(ctx context.Context, userID int64, fullName, jobTitle, phone string) (*models.User, error)

	// GetUser loads a user. Returns ErrUserNotFound when absent.
	GetUser(ctx context.Context, userID int64) (*models.User, error)

	// GetUserByEmail loads a user by normalized email. Returns ErrUserNotFound when absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// CreateUser provisions an account directly, bypassing the approval queue
	// when Approved or Admin is set. Used by the CLI.
	CreateUser(ctx context.Context, in NewUser) (*models.User, error)

	// =========================================================================
	// Entitlements
	// =========================================================================

	// SetEntitlements normalizes slugs and replaces the user's entitlement
	// set. Returns the stored set, sorted.
	SetEntitlements(ctx context.Context, userID int64, slugs []string) ([]string, error)

	// GetEntitlements returns the user's sorted entitlement set.
	GetEntitlements(ctx context.Context, userID int64) ([]string, error)

	// Catalog returns the current application catalog.
	Catalog() catalog.Catalog

	// =========================================================================
	// Administration
	// =========================================================================

	// Approve rotates the user to a temporary password, marks them approved
	// and replaces their entitlements, then emails the temporary password.
	// A failed email is logged and does not fail the call.
	Approve(ctx context.Context, userID int64, apps []string) (*models.User, error)

	// Unapprove returns the user to the pending state and ends their sessions.
	Unapprove(ctx context.Context, actorID, userID int64) (*models.User, error)

	// Reject deletes the user with every entitlement, reset token and session.
	Reject(ctx context.Context, actorID, userID int64) error

	// SetAdmin grants or removes the admin flag.
	SetAdmin(ctx context.Context, actorID, userID int64, isAdmin bool) (*models.User, error)

	// ListUsers returns every user, newest first, optionally narrowed by a
	// go-bexpr filter over id, email, full_name, job_title, phone,
	// is_admin, approved and apps.
	ListUsers(ctx context.Context, filter string) ([]*models.User, error)

	// ListPendingUsers returns accounts awaiting approval, newest first.
	ListPendingUsers(ctx context.Context) ([]*models.User, error)

	// SeedAdmin ensures an approved admin exists for email. created reports
	// whether a new account was inserted.
	SeedAdmin(ctx context.Context, email, password string) (user *models.User, created bool, err error)

	// =========================================================================
	// Password Reset
	// =========================================================================

	// RequestReset always returns MsgResetRequested. Only approved or admin
	// accounts receive a token.
	RequestReset(ctx context.Context, email string) (string, error)

	// ValidateResetToken reports whether token can be redeemed.
	ValidateResetToken(ctx context.Context, token string) (TokenValidation, error)

	// ResetPassword redeems token for newPassword. Returns a
	// *TokenInvalidError or *WeakPasswordError before any mutation.
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)

	// =========================================================================
	// Session Management
	// =========================================================================

	// CreateSession starts a session for an authenticated user. The returned
	// token is the cookie value; only its hash is stored.
	CreateSession(ctx context.Context, userID int64, meta SessionMeta) (*models.Session, string, error)

	// RevokeSession ends one session.
	RevokeSession(ctx context.Context, sessionID string) error

	// RevokeUserSessions ends every session of the user.
	RevokeUserSessions(ctx context.Context, userID int64) (int64, error)

	// PruneSessions deletes expired and revoked sessions.
	PruneSessions(ctx context.Context) (int64, error)
}
