package iam

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/auth"
	"github.com/markgwharry/modiniapps/internal/catalog"
	"github.com/markgwharry/modiniapps/internal/config"
	"github.com/markgwharry/modiniapps/internal/db/bunx"
	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/logging"
	"github.com/markgwharry/modiniapps/internal/repository"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

const tracerName = "modiniapps/services/iam"

// Notifier delivers account lifecycle emails. notify.Mailer implements it.
type Notifier interface {
	SendPendingRegistrationEmails(ctx context.Context, user *models.User) error
	SendUserApprovalEmail(ctx context.Context, user *models.User, temporaryPassword string) error
	SendPasswordResetEmail(ctx context.Context, user *models.User, token string) error
}

// CatalogSource supplies the current catalog snapshot. catalog.Store implements it.
type CatalogSource interface {
	Apps() catalog.Catalog
}

// iamService implements the Service interface.
//
// It coordinates the repositories, the password hasher, the notifier and
// the catalog. It holds no per-request state.
type iamService struct {
	// Repositories
	users       repository.UserRepository
	sessions    repository.SessionRepository
	resetTokens repository.PasswordResetTokenRepository

	hasher   auth.PasswordHasher
	notifier Notifier
	catalog  CatalogSource
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	now      func() time.Time

	tempPasswordLength int
	resetTokenTTL      time.Duration
	sessionTTL         time.Duration

	// Hash verified for unknown emails so login timing does not reveal accounts
	dummyHashOnce sync.Once
	dummyHash     string

	// Authenticators, tried in order
	authenticators []Authenticator
}

// IAMServiceDependencies contains all dependencies for IAM service construction.
//
// Notifier, Catalog, Metrics and Logger are optional. Now defaults to time.Now.
type IAMServiceDependencies struct {
	Users       repository.UserRepository
	Sessions    repository.SessionRepository
	ResetTokens repository.PasswordResetTokenRepository
	Hasher      auth.PasswordHasher
	Notifier    Notifier
	Catalog     CatalogSource
	Metrics     *telemetry.Metrics
	Logger      *zap.Logger
	Now         func() time.Time
}

// IAMServiceConfig contains configuration for IAM service construction.
// Separated from dependencies to clearly distinguish config from runtime dependencies.
type IAMServiceConfig struct {
	Config *config.Config
}

// NewIAMService creates a new IAM service with all dependencies.
//
// The repositories and the hasher are required. A nil Config falls back to
// the defaults used by config.Load.
func NewIAMService(deps IAMServiceDependencies, cfg IAMServiceConfig) (Service, error) {
	if deps.Users == nil || deps.Sessions == nil || deps.ResetTokens == nil {
		return nil, errors.New("iam: user, session and reset token repositories are required")
	}
	if deps.Hasher == nil {
		return nil, errors.New("iam: password hasher is required")
	}

	svc := &iamService{
		users:              deps.Users,
		sessions:           deps.Sessions,
		resetTokens:        deps.ResetTokens,
		hasher:             deps.Hasher,
		notifier:           deps.Notifier,
		catalog:            deps.Catalog,
		metrics:            deps.Metrics,
		logger:             logging.OrNop(deps.Logger).Named("iam"),
		now:                deps.Now,
		tempPasswordLength: auth.DefaultTemporaryPasswordLength,
		resetTokenTTL:      time.Hour,
		sessionTTL:         auth.DefaultSessionDuration,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.catalog == nil {
		svc.catalog = catalog.NewStaticStore(nil)
	}

	cookieName := "modiniapps.sid"
	if c := cfg.Config; c != nil {
		if c.Security.TempPasswordLength > 0 {
			svc.tempPasswordLength = c.Security.TempPasswordLength
		}
		if c.Security.ResetTokenTTL > 0 {
			svc.resetTokenTTL = c.Security.ResetTokenTTL
		}
		if c.Session.TTL > 0 {
			svc.sessionTTL = c.Session.TTL
		}
		if c.Session.CookieName != "" {
			cookieName = c.Session.CookieName
		}
	}

	svc.authenticators = []Authenticator{
		newSessionAuthenticator(svc, cookieName, svc.sessionTTL),
	}
	return svc, nil
}

// =========================================================================
// Authentication (Request Path)
// =========================================================================

// AuthenticateRequest tries all registered authenticators in order.
//
//   - (nil, nil) from an authenticator: no credentials, try next
//   - (nil, error): stop and return the error
//   - (principal, nil): stop and return the principal
func (s *iamService) AuthenticateRequest(ctx context.Context, req AuthRequest) (*Principal, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.AuthenticateRequest",
		attribute.Int("authenticator_count", len(s.authenticators)),
	)
	defer span.End()

	for _, authenticator := range s.authenticators {
		principal, err := authenticator.Authenticate(ctx, req)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if principal != nil {
			span.SetAttributes(
				attribute.Int64(telemetry.AttrUserID, principal.UserID()),
				attribute.Bool(telemetry.AttrUserAdmin, principal.IsAdmin()),
				attribute.String(telemetry.AttrSessionID, principal.SessionID),
			)
			return principal, nil
		}
	}

	telemetry.AddEvent(span, "authentication.no_credentials")
	return nil, nil
}

// Catalog returns the current catalog snapshot.
func (s *iamService) Catalog() catalog.Catalog {
	return s.catalog.Apps()
}

// =========================================================================
// Session Management
// =========================================================================

// SessionMeta describes the client that opened a session.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// CreateSession creates a new session after successful authentication.
func (s *iamService) CreateSession(ctx context.Context, userID int64, meta SessionMeta) (*models.Session, string, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.CreateSession",
		attribute.Int64(telemetry.AttrUserID, userID),
	)
	defer span.End()

	token, hash, err := auth.GenerateToken()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, "", err
	}

	now := s.now()
	session := &models.Session{
		ID:         bunx.NewUUIDv7(),
		UserID:     userID,
		TokenHash:  hash,
		ExpiresAt:  auth.CalculateExpiry(now, s.sessionTTL),
		CreatedAt:  now,
		LastUsedAt: now,
		UserAgent:  optional(meta.UserAgent),
		IPAddress:  optional(meta.IPAddress),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		telemetry.RecordError(span, err)
		return nil, "", storageErr("create session", err)
	}

	span.SetAttributes(attribute.String(telemetry.AttrSessionID, session.ID))
	return session, token, nil
}

// RevokeSession invalidates a session by ID. Unknown ids are ignored.
func (s *iamService) RevokeSession(ctx context.Context, sessionID string) error {
	err := s.sessions.Revoke(ctx, sessionID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return storageErr("revoke session", err)
	}
	return nil
}

// RevokeUserSessions invalidates every session of the user.
func (s *iamService) RevokeUserSessions(ctx context.Context, userID int64) (int64, error) {
	n, err := s.sessions.RevokeByUserID(ctx, userID)
	if err != nil {
		return 0, storageErr("revoke user sessions", err)
	}
	return n, nil
}

// PruneSessions deletes expired and revoked sessions.
func (s *iamService) PruneSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, storageErr("prune sessions", err)
	}
	if n > 0 {
		s.logger.Info("pruned sessions", zap.Int64("count", n))
	}
	return n, nil
}

// revokeOtherSessions ends every session of userID except keep.
func (s *iamService) revokeOtherSessions(ctx context.Context, userID int64, keep string) {
	sessions, err := s.sessions.ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to list sessions for revocation", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	for _, sess := range sessions {
		if sess.ID == keep || sess.Revoked {
			continue
		}
		if err := s.sessions.Revoke(ctx, sess.ID); err != nil {
			s.logger.Warn("failed to revoke session", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// loadUser returns the user or ErrUserNotFound.
func (s *iamService) loadUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storageErr("load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// hashPassword hashes plain, reporting over-long input as *WeakPasswordError.
func (s *iamService) hashPassword(plain string) (string, error) {
	hash, err := s.hasher.Hash(plain)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", &WeakPasswordError{Message: MsgPasswordTooLong}
	}
	return hash, err
}

// verifyDummy spends the same bcrypt work as a real password check.
func (s *iamService) verifyDummy(password string) {
	s.dummyHashOnce.Do(func() {
		token, _, err := auth.GenerateToken()
		if err != nil {
			return
		}
		if hash, err := s.hasher.Hash(token); err == nil {
			s.dummyHash = hash
		}
	})
	s.hasher.Verify(password, s.dummyHash)
}

// mapMutationErr converts repository.ErrNotFound into ErrUserNotFound.
func mapMutationErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return storageErr(op, err)
}
