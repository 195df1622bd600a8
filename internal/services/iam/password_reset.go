package iam

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/auth"
	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/repository"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

// TokenValidation is the outcome of checking a reset token.
// Reason is set only when Valid is false.
type TokenValidation struct {
	Valid   bool   `json:"valid"`
	UserID  int64  `json:"userId,omitempty"`
	TokenID int64  `json:"-"`
	Reason  string `json:"error,omitempty"`
}

// RequestReset issues a reset token for approved accounts and emails it.
//
// The returned message is identical for unknown, pending and approved
// accounts, and a failed email is only logged, so callers cannot learn
// whether the address is registered.
func (s *iamService) RequestReset(ctx context.Context, email string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.RequestReset")
	defer span.End()

	s.metrics.RecordResetRequest()

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		telemetry.RecordError(span, err)
		return "", storageErr("lookup email", err)
	}
	if user == nil || !user.IsApproved() {
		telemetry.AddEvent(span, "reset.skipped")
		return MsgResetRequested, nil
	}
	span.SetAttributes(attribute.Int64(telemetry.AttrUserID, user.ID))

	token, hash, err := auth.GenerateToken()
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	now := s.now().UTC()
	record := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     hash,
		ExpiresAt: now.Add(s.resetTokenTTL),
		CreatedAt: now,
	}
	if err := s.resetTokens.Issue(ctx, record); err != nil {
		telemetry.RecordError(span, err)
		return "", storageErr("issue reset token", err)
	}
	s.logger.Info("password reset requested", zap.Int64("user_id", user.ID))

	if s.notifier != nil {
		if err := s.notifier.SendPasswordResetEmail(ctx, Sanitize(user), token); err != nil {
			s.logger.Error("failed to send password reset email", zap.Int64("user_id", user.ID), zap.Error(err))
			telemetry.NotificationFailed(span, "password_reset")
		}
	}
	return MsgResetRequested, nil
}

// ValidateResetToken checks token without consuming it.
func (s *iamService) ValidateResetToken(ctx context.Context, token string) (TokenValidation, error) {
	if token == "" {
		return TokenValidation{Reason: ReasonTokenRequired}, nil
	}

	record, err := s.resetTokens.GetByToken(ctx, auth.HashToken(token))
	if err != nil {
		return TokenValidation{}, storageErr("load reset token", err)
	}
	switch {
	case record == nil:
		return TokenValidation{Reason: ReasonTokenUnknown}, nil
	case record.Usable(s.now()):
		return TokenValidation{Valid: true, UserID: record.UserID, TokenID: record.ID}, nil
	case record.Used:
		return TokenValidation{Reason: ReasonTokenUsed}, nil
	}
	return TokenValidation{Reason: ReasonTokenExpired}, nil
}

// ResetPassword stores newPassword and marks token used.
func (s *iamService) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.ResetPassword")
	defer span.End()

	result := "success"
	defer func() {
		span.SetAttributes(attribute.String(telemetry.AttrResult, result))
		s.metrics.RecordReset(result)
	}()

	validation, err := s.ValidateResetToken(ctx, token)
	if err != nil {
		result = "error"
		telemetry.RecordError(span, err)
		return "", err
	}
	if !validation.Valid {
		result = "invalid_token"
		span.SetAttributes(attribute.String(telemetry.AttrResetReason, validation.Reason))
		return "", &TokenInvalidError{Reason: validation.Reason}
	}
	if err := checkNewPassword(newPassword, MsgPasswordTooShort, MsgPasswordTooLong); err != nil {
		result = "weak_password"
		return "", err
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		result = "error"
		telemetry.RecordError(span, err)
		return "", err
	}
	if err := s.resetTokens.Redeem(ctx, validation.TokenID, validation.UserID, hash); err != nil {
		if errors.Is(err, repository.ErrAlreadyUsed) {
			result = "invalid_token"
			return "", &TokenInvalidError{Reason: ReasonTokenUsed}
		}
		result = "error"
		telemetry.RecordError(span, err)
		return "", mapMutationErr("redeem reset token", err)
	}

	span.SetAttributes(attribute.Int64(telemetry.AttrUserID, validation.UserID))
	if _, err := s.sessions.RevokeByUserID(ctx, validation.UserID); err != nil {
		s.logger.Warn("failed to revoke sessions after reset", zap.Int64("user_id", validation.UserID), zap.Error(err))
	}
	s.logger.Info("password reset", zap.Int64("user_id", validation.UserID))
	return MsgResetSucceeded, nil
}
