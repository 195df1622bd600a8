package iam

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/auth"
	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

// =========================================================================
// Approval Workflow
// =========================================================================

// Approve activates a pending account.
//
//  1. ErrUserNotFound if the user is absent
//  2. Generate and hash a temporary password
//  3. In one transaction: store the hash, set approved, replace entitlements
//  4. Reload the user and email the temporary password
//
// The state is committed before the email is attempted. A failed email is
// logged and never rolls the approval back.
func (s *iamService) Approve(ctx context.Context, userID int64, apps []string) (*models.User, error) {
	slugs := NormalizeSlugs(apps)
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Approve",
		attribute.Int64(telemetry.AttrUserID, userID),
		attribute.Int(telemetry.AttrAppCount, len(slugs)),
	)
	defer span.End()

	if _, err := s.loadUser(ctx, userID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	tempPassword, err := auth.GenerateTemporaryPassword(s.tempPasswordLength)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := s.hasher.Hash(tempPassword)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.users.Approve(ctx, userID, hash, slugs); err != nil {
		telemetry.RecordError(span, err)
		return nil, mapMutationErr("approve user", err)
	}
	s.metrics.RecordApproval()

	approved, err := s.GetUser(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("user approved", zap.Int64("user_id", userID), zap.Strings("apps", approved.AllowedApps))

	if s.notifier != nil {
		if err := s.notifier.SendUserApprovalEmail(ctx, approved, tempPassword); err != nil {
			s.logger.Error("failed to send approval email", zap.Int64("user_id", userID), zap.Error(err))
			telemetry.NotificationFailed(span, "approval")
		}
	}
	return approved, nil
}

// Unapprove returns a user to the pending queue and ends their sessions.
func (s *iamService) Unapprove(ctx context.Context, actorID, userID int64) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Unapprove",
		attribute.Int64(telemetry.AttrUserID, userID),
	)
	defer span.End()

	if actorID == userID {
		return nil, ErrSelfModification
	}
	if err := s.users.SetApproved(ctx, userID, false); err != nil {
		telemetry.RecordError(span, err)
		return nil, mapMutationErr("unapprove user", err)
	}
	if _, err := s.sessions.RevokeByUserID(ctx, userID); err != nil {
		s.logger.Warn("failed to revoke sessions", zap.Int64("user_id", userID), zap.Error(err))
	}
	s.logger.Info("user unapproved", zap.Int64("user_id", userID), zap.Int64("actor_id", actorID))
	return s.GetUser(ctx, userID)
}

// Reject deletes the account and all of its dependent rows.
func (s *iamService) Reject(ctx context.Context, actorID, userID int64) error {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Reject",
		attribute.Int64(telemetry.AttrUserID, userID),
	)
	defer span.End()

	if actorID == userID {
		return ErrSelfModification
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		telemetry.RecordError(span, err)
		return mapMutationErr("delete user", err)
	}
	s.logger.Info("user rejected", zap.Int64("user_id", userID), zap.Int64("actor_id", actorID))
	return nil
}

// SetAdmin grants or removes the admin flag. Admins cannot demote themselves.
func (s *iamService) SetAdmin(ctx context.Context, actorID, userID int64, isAdmin bool) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.SetAdmin",
		attribute.Int64(telemetry.AttrUserID, userID),
		attribute.Bool(telemetry.AttrUserAdmin, isAdmin),
	)
	defer span.End()

	if !isAdmin && actorID == userID {
		return nil, ErrSelfModification
	}
	var err error
	if isAdmin {
		err = s.users.Promote(ctx, userID)
	} else {
		err = s.users.SetAdmin(ctx, userID, false)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, mapMutationErr("set admin", err)
	}
	s.logger.Info("admin flag changed",
		zap.Int64("user_id", userID),
		zap.Int64("actor_id", actorID),
		zap.Bool("is_admin", isAdmin))
	return s.GetUser(ctx, userID)
}

// =========================================================================
// Listing
// =========================================================================

// ListUsers returns sanitized users, newest first, narrowed by filter.
func (s *iamService) ListUsers(ctx context.Context, filter string) ([]*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.ListUsers")
	defer span.End()

	evaluator, err := auth.CompileFilter(filter)
	if err != nil {
		return nil, &ValidationError{Problems: []string{err.Error()}}
	}

	users, err := s.users.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, storageErr("list users", err)
	}

	out := make([]*models.User, 0, len(users))
	for _, user := range users {
		if !auth.MatchFilter(evaluator, filterFields(user)) {
			continue
		}
		out = append(out, Sanitize(user))
	}
	span.SetAttributes(attribute.Int("user_count", len(out)))
	return out, nil
}

// ListPendingUsers returns accounts awaiting approval, newest first.
func (s *iamService) ListPendingUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListPending(ctx)
	if err != nil {
		return nil, storageErr("list pending users", err)
	}
	out := make([]*models.User, 0, len(users))
	for _, user := range users {
		out = append(out, Sanitize(user))
	}
	return out, nil
}

// filterFields exposes the attributes a ListUsers filter may reference.
func filterFields(user *models.User) map[string]any {
	apps := user.AllowedApps
	if apps == nil {
		apps = []string{}
	}
	return map[string]any{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"job_title": user.JobTitle,
		"phone":     user.Phone,
		"is_admin":  user.IsAdmin,
		"approved":  user.IsApproved(),
		"apps":      apps,
	}
}
