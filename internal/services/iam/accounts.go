package iam

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/auth"
	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/repository"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Sanitize returns a copy of user without the password hash. Nil stays nil.
func Sanitize(user *models.User) *models.User {
	if user == nil {
		return nil
	}
	out := *user
	out.PasswordHash = ""
	out.Apps = nil
	if out.AllowedApps == nil {
		out.AllowedApps = []string{}
	}
	return &out
}

// NewUser describes an account provisioned outside the registration flow.
type NewUser struct {
	Email    string
	Password string
	Admin    bool
	Approved bool
	Apps     []string
}

// =========================================================================
// Registration & Login
// =========================================================================

// Register creates a pending account and tells the admins about it.
func (s *iamService) Register(ctx context.Context, email, password string) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Register")
	defer span.End()

	if len(password) > auth.MaxPasswordBytes {
		return nil, &WeakPasswordError{Message: MsgPasswordTooLong}
	}

	email = NormalizeEmail(email)
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, storageErr("lookup email", err)
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	user := &models.User{Email: email, PasswordHash: hash, CreatedAt: s.now().UTC()}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent registration of the same email.
			return nil, ErrAccountExists
		}
		telemetry.RecordError(span, err)
		return nil, storageErr("create user", err)
	}

	span.SetAttributes(attribute.Int64(telemetry.AttrUserID, user.ID))
	s.metrics.RecordRegistration()
	s.logger.Info("user registered", zap.Int64("user_id", user.ID))

	user = Sanitize(user)
	if s.notifier != nil {
		if err := s.notifier.SendPendingRegistrationEmails(ctx, user); err != nil {
			s.logger.Error("failed to send registration emails", zap.Int64("user_id", user.ID), zap.Error(err))
			telemetry.NotificationFailed(span, "registration")
		}
	}
	return user, nil
}

// Authenticate verifies credentials and returns the sanitized user.
func (s *iamService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Authenticate")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, storageErr("lookup email", err)
	}

	result := "success"
	defer func() {
		span.SetAttributes(attribute.String(telemetry.AttrResult, result))
		s.metrics.RecordLogin(result)
	}()

	if user == nil {
		s.verifyDummy(password)
		result = "invalid_credentials"
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		result = "invalid_credentials"
		return nil, ErrInvalidCredentials
	}
	if !user.IsApproved() {
		result = "pending_approval"
		return nil, ErrPendingApproval
	}

	span.SetAttributes(attribute.Int64(telemetry.AttrUserID, user.ID))
	return Sanitize(user), nil
}

// =========================================================================
// Self Service
// =========================================================================

// ChangePassword verifies current and stores next.
func (s *iamService) ChangePassword(ctx context.Context, userID int64, current, next, keepSessionID string) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.ChangePassword",
		attribute.Int64(telemetry.AttrUserID, userID),
	)
	defer span.End()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return nil, ErrInvalidPassword
	}
	if err := checkNewPassword(next, MsgNewPasswordTooShort, MsgNewPasswordTooLong); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(next)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.users.SetPasswordHash(ctx, userID, hash); err != nil {
		telemetry.RecordError(span, err)
		return nil, mapMutationErr("store password", err)
	}

	s.revokeOtherSessions(ctx, userID, keepSessionID)
	s.logger.Info("password changed", zap.Int64("user_id", userID))
	return s.GetUser(ctx, userID)
}

// UpdateProfile validates and stores the profile fields.
func (s *iamService) UpdateProfile(ctx context.Context, userID int64, fullName, jobTitle, phone string) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.UpdateProfile",
		attribute.Int64(telemetry.AttrUserID, userID),
	)
	defer span.End()

	profile, err := ValidateProfile(fullName, jobTitle, phone)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, userID, profile.FullName, profile.JobTitle, profile.Phone); err != nil {
		telemetry.RecordError(span, err)
		return nil, mapMutationErr("update profile", err)
	}
	return s.GetUser(ctx, userID)
}

// GetUser loads a sanitized user.
func (s *iamService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Sanitize(user), nil
}

// GetUserByEmail loads a sanitized user by email.
func (s *iamService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, storageErr("lookup email", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return Sanitize(user), nil
}

// CreateUser provisions an account with explicit flags and entitlements.
func (s *iamService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.CreateUser",
		attribute.Bool(telemetry.AttrUserAdmin, in.Admin),
	)
	defer span.End()

	email := NormalizeEmail(in.Email)
	if email == "" {
		return nil, &ValidationError{Problems: []string{MsgEmailRequired}}
	}
	if err := checkNewPassword(in.Password, MsgPasswordTooShort, MsgPasswordTooLong); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      in.Admin,
		Approved:     in.Approved || in.Admin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAccountExists
		}
		telemetry.RecordError(span, err)
		return nil, storageErr("create user", err)
	}

	if slugs := NormalizeSlugs(in.Apps); len(slugs) > 0 {
		if err := s.users.ReplaceApps(ctx, user.ID, slugs); err != nil {
			telemetry.RecordError(span, err)
			return nil, mapMutationErr("replace entitlements", err)
		}
	}

	span.SetAttributes(attribute.Int64(telemetry.AttrUserID, user.ID))
	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.Bool("admin", user.IsAdmin))
	return s.GetUser(ctx, user.ID)
}
