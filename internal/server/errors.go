package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/services/iam"
)

var (
	// ErrRateLimited is returned when a client exhausted its attempt budget.
	ErrRateLimited = errors.New("too many attempts, please try again later")

	// ErrInvalidUserID is returned for a non-numeric {id} path parameter.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrMalformedBody is returned when a request body is not valid JSON.
	ErrMalformedBody = errors.New("malformed request body")
)

// User-facing messages. Security-sensitive failures stay generic.
const (
	msgAccountExists    = "That email is already registered"
	msgInvalidLogin     = "Invalid email or password"
	msgPendingApproval  = "Account pending approval"
	msgCurrentPassword  = "Current password is incorrect"
	msgUserNotFound     = "User not found"
	msgAppNotFound      = "App not found"
	msgAppForbidden     = "You do not have access to this app"
	msgRateLimited      = "Too many attempts. Please try again later."
	msgInternal         = "Internal server error"
	msgRegistrationSent = "Your registration request is pending administrator approval. You will receive an email once your account is ready."
	msgPasswordUpdated  = "Password updated successfully."
	msgSelfModification = "You cannot change your own admin access"
	msgInvalidUserID    = "Invalid user id"
	msgMalformedBody    = "Malformed request body"
)

// errorResponse is the body of every failed request. Errors lists each
// validation problem when there is more than one thing to fix.
type errorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

// statusFor maps service errors onto HTTP status codes and client messages.
// Anything outside the closed taxonomy is a 500 with a generic body.
func statusFor(err error) (int, errorResponse) {
	var (
		validation *iam.ValidationError
		weak       *iam.WeakPasswordError
		token      *iam.TokenInvalidError
	)

	switch {
	case errors.As(err, &validation):
		msg := ""
		if len(validation.Problems) > 0 {
			msg = validation.Problems[0]
		}
		return http.StatusBadRequest, errorResponse{Error: msg, Errors: validation.Problems}
	case errors.As(err, &weak):
		return http.StatusBadRequest, errorResponse{Error: weak.Message}
	case errors.As(err, &token):
		return http.StatusBadRequest, errorResponse{Error: token.Reason}
	case errors.Is(err, iam.ErrAccountExists):
		return http.StatusConflict, errorResponse{Error: msgAccountExists}
	case errors.Is(err, iam.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: msgInvalidLogin}
	case errors.Is(err, iam.ErrPendingApproval):
		return http.StatusUnauthorized, errorResponse{Error: msgPendingApproval}
	case errors.Is(err, iam.ErrInvalidPassword):
		return http.StatusBadRequest, errorResponse{Error: msgCurrentPassword}
	case errors.Is(err, iam.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Error: msgUserNotFound}
	case errors.Is(err, iam.ErrSelfModification):
		return http.StatusBadRequest, errorResponse{Error: msgSelfModification}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: msgRateLimited}
	case errors.Is(err, ErrInvalidUserID):
		return http.StatusBadRequest, errorResponse{Error: msgInvalidUserID}
	case errors.Is(err, ErrMalformedBody):
		return http.StatusBadRequest, errorResponse{Error: msgMalformedBody}
	default:
		return http.StatusInternalServerError, errorResponse{Error: msgInternal}
	}
}

// writeError maps err and writes it. 500s are logged with op so the cause
// reaches the operator without reaching the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}
