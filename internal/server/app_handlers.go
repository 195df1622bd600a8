package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/catalog"
	"github.com/markgwharry/modiniapps/internal/middleware"
)

// HandleListApps handles GET /api/apps: the catalog filtered to the
// caller's entitlements. Admins see every app.
func HandleListApps(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := middleware.PrincipalFromContext(r.Context())
		apps := principal.Apps
		if apps == nil {
			apps = catalog.Catalog{}
		}
		writeJSON(w, http.StatusOK, map[string]catalog.Catalog{"apps": apps})
	}
}

// HandleLaunchApp handles GET /apps/{slug}.
// Unknown slugs are 404, apps outside the caller's entitlements 403;
// otherwise the browser is sent on to the app.
func HandleLaunchApp(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := middleware.PrincipalFromContext(r.Context())
		slug := chi.URLParam(r, "slug")

		app, ok := d.iam.Catalog().Find(slug)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: msgAppNotFound})
			return
		}
		if !principal.CanAccess(slug) {
			d.logger.Info("app launch denied",
				zap.Int64("user_id", principal.UserID()),
				zap.String("app", slug))
			writeJSON(w, http.StatusForbidden, errorResponse{Error: msgAppForbidden})
			return
		}
		http.Redirect(w, r, app.URL, http.StatusFound)
	}
}
