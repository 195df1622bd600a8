package server

import (
	"context"

	"github.com/markgwharry/modiniapps/internal/catalog"
	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/services/iam"
)

// gatewayService defines the exact IAM methods used by server handlers.
// Keeping the contract here lets handler tests swap in narrow fakes.
type gatewayService interface {
	// Request path
	AuthenticateRequest(ctx context.Context, req iam.AuthRequest) (*iam.Principal, error)
	Catalog() catalog.Catalog

	// Accounts
	Register(ctx context.Context, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, current, next, keepSessionID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, fullName, jobTitle, phone string) (*models.User, error)

	// Sessions
	CreateSession(ctx context.Context, userID int64, meta iam.SessionMeta) (*models.Session, string, error)
	RevokeSession(ctx context.Context, sessionID string) error

	// Password reset
	RequestReset(ctx context.Context, email string) (string, error)
	ValidateResetToken(ctx context.Context, token string) (iam.TokenValidation, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)

	// Administration
	ListUsers(ctx context.Context, filter string) ([]*models.User, error)
	ListPendingUsers(ctx context.Context) ([]*models.User, error)
	Approve(ctx context.Context, userID int64, apps []string) (*models.User, error)
	Unapprove(ctx context.Context, actorID, userID int64) (*models.User, error)
	Reject(ctx context.Context, actorID, userID int64) error
	SetAdmin(ctx context.Context, actorID, userID int64, isAdmin bool) (*models.User, error)
	SetEntitlements(ctx context.Context, userID int64, slugs []string) ([]string, error)
}

// Compile-time assertion: iam.Service must implement gatewayService.
var _ gatewayService = (iam.Service)(nil)
