package iam

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for failures that carry no data.
var (
	// ErrAccountExists is returned by Register when the email is already taken.
	ErrAccountExists = errors.New("an account with this email already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrPendingApproval is returned once the password verified but the
	// account has not been approved yet.
	ErrPendingApproval = errors.New("account pending approval")

	// ErrInvalidPassword is returned when the current password does not match.
	ErrInvalidPassword = errors.New("current password is incorrect")

	// ErrUserNotFound is returned when an operation targets a missing user.
	ErrUserNotFound = errors.New("user not found")

	// ErrWeakPassword matches every *WeakPasswordError.
	ErrWeakPassword = errors.New("weak password")

	// ErrTokenInvalid matches every *TokenInvalidError.
	ErrTokenInvalid = errors.New("invalid reset token")

	// ErrStorageFailure matches every *StorageError.
	ErrStorageFailure = errors.New("storage failure")

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrSelfModification is returned when an admin tries to demote or
	// reject their own account.
	ErrSelfModification = errors.New("administrators cannot modify their own access")
)

// Messages returned to callers of the password reset workflow.
const (
	MsgResetRequested   = "If an account exists with that email, you will receive a password reset link."
	MsgResetSucceeded   = "Your password has been reset successfully"
	MsgPasswordTooShort = "Password must be at least 8 characters long"
	MsgPasswordTooLong  = "Password must be 72 bytes or fewer"

	ReasonTokenRequired = "Token is required"
	ReasonTokenUnknown  = "Invalid or expired reset link"
	ReasonTokenUsed     = "This reset link has already been used"
	ReasonTokenExpired  = "This reset link has expired"
)

// WeakPasswordError reports a new password that fails the length policy.
type WeakPasswordError struct {
	Message string
}

func (e *WeakPasswordError) Error() string { return e.Message }

func (e *WeakPasswordError) Is(target error) bool { return target == ErrWeakPassword }

// TokenInvalidError reports why a reset token cannot be used.
type TokenInvalidError struct {
	Reason string
}

func (e *TokenInvalidError) Error() string { return e.Reason }

func (e *TokenInvalidError) Is(target error) bool { return target == ErrTokenInvalid }

// StorageError wraps a failed store operation. Op names the operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }

// ValidationError lists every problem found in user input, in field order.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string { return strings.Join(e.Problems, "; ") }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
