package server

import (
	"net/http"

	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/middleware"
	"github.com/markgwharry/modiniapps/internal/services/iam"
)

type profileResponse struct {
	Profile *models.User `json:"profile"`
}

// HandleGetProfile handles GET /api/profile.
func HandleGetProfile(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := middleware.PrincipalFromContext(r.Context())
		writeJSON(w, http.StatusOK, profileResponse{Profile: principal.User})
	}
}

type profileRequest struct {
	FullName string `json:"fullName"`
	JobTitle string `json:"jobTitle"`
	Phone    string `json:"phone"`
}

// HandleUpdateProfile handles PUT /api/profile.
func HandleUpdateProfile(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := middleware.PrincipalFromContext(r.Context())

		var req profileRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.logger, "update profile", err)
			return
		}

		user, err := d.iam.UpdateProfile(r.Context(), principal.UserID(), req.FullName, req.JobTitle, req.Phone)
		if err != nil {
			writeError(w, r, d.logger, "update profile", err)
			return
		}
		writeJSON(w, http.StatusOK, profileResponse{Profile: user})
	}
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// HandleChangePassword handles PUT /api/profile/password.
// The calling session stays signed in; every other session is revoked.
func HandleChangePassword(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := middleware.PrincipalFromContext(r.Context())

		var req passwordChangeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.logger, "change password", err)
			return
		}
		if err := iam.ValidatePasswordChange(req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
			writeError(w, r, d.logger, "change password", err)
			return
		}

		_, err := d.iam.ChangePassword(r.Context(), principal.UserID(), req.CurrentPassword, req.NewPassword, principal.SessionID)
		if err != nil {
			writeError(w, r, d.logger, "change password", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msgPasswordUpdated})
	}
}
