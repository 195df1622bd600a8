package repository

import (
	"context"
	"time"

	"github.com/markgwharry/modiniapps/internal/db/models"
)

// UserRepository exposes persistence operations for accounts and their
// application entitlements. Lookups return (nil, nil) when no row matches.
// Users returned by lookups have AllowedApps populated and sorted.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	ListPending(ctx context.Context) ([]*models.User, error)

	UpdateProfile(ctx context.Context, id int64, fullName, jobTitle, phone string) error
	SetPasswordHash(ctx context.Context, id int64, passwordHash string) error
	SetApproved(ctx context.Context, id int64, approved bool) error
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
	// Promote marks the user admin and approved in one statement.
	Promote(ctx context.Context, id int64) error

	GetApps(ctx context.Context, id int64) ([]string, error)
	// ReplaceApps deletes every entitlement of the user and inserts slugs, atomically.
	ReplaceApps(ctx context.Context, id int64, slugs []string) error
	// Approve rotates the password hash, sets approved and replaces entitlements in one transaction.
	Approve(ctx context.Context, id int64, passwordHash string, slugs []string) error

	// Delete removes the user together with entitlements, reset tokens and sessions.
	Delete(ctx context.Context, id int64) error
}

// PasswordResetTokenRepository exposes persistence for password reset tokens.
type PasswordResetTokenRepository interface {
	// Issue deletes the user's unused tokens and inserts token, atomically.
	Issue(ctx context.Context, token *models.PasswordResetToken) error
	GetByToken(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	// Redeem marks the token used and stores the new password hash in one
	// transaction. Returns ErrAlreadyUsed if the token was consumed concurrently.
	Redeem(ctx context.Context, tokenID, userID int64, passwordHash string) error
}

// SessionRepository exposes persistence for cookie-backed sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	// Touch records activity and slides the expiry forward.
	Touch(ctx context.Context, id string, expiresAt time.Time) error
	Revoke(ctx context.Context, id string) error
	RevokeByUserID(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.Session, error)
}
