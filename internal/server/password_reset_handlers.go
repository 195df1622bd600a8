package server

import (
	"net/http"

	"github.com/markgwharry/modiniapps/internal/services/iam"
)

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// HandleForgotPassword handles POST /auth/password/forgot.
// The answer is identical whether or not the email belongs to an account.
func HandleForgotPassword(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req forgotPasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.logger, "request reset", err)
			return
		}
		if iam.NormalizeEmail(req.Email) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: iam.MsgEmailRequired})
			return
		}
		if !d.allow(ctx, "password_reset", r, req.Email) {
			writeError(w, r, d.logger, "request reset", ErrRateLimited)
			return
		}

		msg, err := d.iam.RequestReset(ctx, req.Email)
		if err != nil {
			writeError(w, r, d.logger, "request reset", err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: msg})
	}
}

// HandleValidateResetToken handles GET /auth/password/reset?token=.
// Invalid tokens answer 400 with the same body shape and a reason.
func HandleValidateResetToken(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := d.iam.ValidateResetToken(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			writeError(w, r, d.logger, "validate reset token", err)
			return
		}
		status := http.StatusOK
		if !result.Valid {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, result)
	}
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// HandleResetPassword handles POST /auth/password/reset.
func HandleResetPassword(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.logger, "reset password", err)
			return
		}
		if req.Password != req.ConfirmPassword {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: iam.MsgPasswordsDoNotMatch})
			return
		}

		msg, err := d.iam.ResetPassword(r.Context(), req.Token, req.Password)
		if err != nil {
			writeError(w, r, d.logger, "reset password", err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: msg})
	}
}
