package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/middleware"
)

type usersResponse struct {
	Users []*models.User `json:"users"`
}

type userResponse struct {
	User *models.User `json:"user"`
}

type appsRequest struct {
	Apps []string `json:"apps"`
}

// HandleListUsers handles GET /api/admin/users?filter=.
// filter is a go-bexpr expression, e.g. `approved == false and email matches "@modini"`.
func HandleListUsers(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := d.iam.ListUsers(r.Context(), r.URL.Query().Get("filter"))
		if err != nil {
			writeError(w, r, d.logger, "list users", err)
			return
		}
		writeJSON(w, http.StatusOK, usersResponse{Users: nonNilUsers(users)})
	}
}

// HandleListPendingUsers handles GET /api/admin/users/pending.
func HandleListPendingUsers(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := d.iam.ListPendingUsers(r.Context())
		if err != nil {
			writeError(w, r, d.logger, "list pending users", err)
			return
		}
		writeJSON(w, http.StatusOK, usersResponse{Users: nonNilUsers(users)})
	}
}

// HandleApproveUser handles POST /api/admin/users/{id}/approve.
// Body: {"apps": ["crm", ...]}. The temporary password is emailed, never returned.
func HandleApproveUser(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDParam(r)
		if err != nil {
			writeError(w, r, d.logger, "approve user", err)
			return
		}
		var req appsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.logger, "approve user", err)
			return
		}

		user, err := d.iam.Approve(r.Context(), userID, req.Apps)
		if err != nil {
			writeError(w, r, d.logger, "approve user", err)
			return
		}
		logAdminAction(d.logger, r, "approve", userID)
		writeJSON(w, http.StatusOK, userResponse{User: user})
	}
}

// HandleUnapproveUser handles POST /api/admin/users/{id}/unapprove.
func HandleUnapproveUser(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := middleware.PrincipalFromContext(r.Context())
		userID, err := userIDParam(r)
		if err != nil {
			writeError(w, r, d.logger, "unapprove user", err)
			return
		}

		user, err := d.iam.Unapprove(r.Context(), principal.UserID(), userID)
		if err != nil {
			writeError(w, r, d.logger, "unapprove user", err)
			return
		}
		logAdminAction(d.logger, r, "unapprove", userID)
		writeJSON(w, http.StatusOK, userResponse{User: user})
	}
}

// HandleRejectUser handles POST /api/admin/users/{id}/reject.
func HandleRejectUser(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := middleware.PrincipalFromContext(r.Context())
		userID, err := userIDParam(r)
		if err != nil {
			writeError(w, r, d.logger, "reject user", err)
			return
		}

		if err := d.iam.Reject(r.Context(), principal.UserID(), userID); err != nil {
			writeError(w, r, d.logger, "reject user", err)
			return
		}
		logAdminAction(d.logger, r, "reject", userID)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// HandleSetAdmin handles POST /api/admin/users/{id}/make-admin and
// /remove-admin.
func HandleSetAdmin(d *handlerDeps, isAdmin bool) http.HandlerFunc {
	action := "remove-admin"
	if isAdmin {
		action = "make-admin"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := middleware.PrincipalFromContext(r.Context())
		userID, err := userIDParam(r)
		if err != nil {
			writeError(w, r, d.logger, action, err)
			return
		}

		user, err := d.iam.SetAdmin(r.Context(), principal.UserID(), userID, isAdmin)
		if err != nil {
			writeError(w, r, d.logger, action, err)
			return
		}
		logAdminAction(d.logger, r, action, userID)
		writeJSON(w, http.StatusOK, userResponse{User: user})
	}
}

// HandleSetUserApps handles PUT /api/admin/users/{id}/apps.
func HandleSetUserApps(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDParam(r)
		if err != nil {
			writeError(w, r, d.logger, "set apps", err)
			return
		}
		var req appsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.logger, "set apps", err)
			return
		}

		apps, err := d.iam.SetEntitlements(r.Context(), userID, req.Apps)
		if err != nil {
			writeError(w, r, d.logger, "set apps", err)
			return
		}
		logAdminAction(d.logger, r, "set-apps", userID)
		writeJSON(w, http.StatusOK, map[string][]string{"apps": apps})
	}
}

func logAdminAction(logger *zap.Logger, r *http.Request, action string, target int64) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	logger.Info("admin action",
		zap.String("action", action),
		zap.Int64("actor_id", principal.UserID()),
		zap.Int64("user_id", target))
}

func nonNilUsers(users []*models.User) []*models.User {
	if users == nil {
		return []*models.User{}
	}
	return users
}
