package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/auth"
	"github.com/markgwharry/modiniapps/internal/catalog"
	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/middleware"
	"github.com/markgwharry/modiniapps/internal/ratelimit"
	"github.com/markgwharry/modiniapps/internal/services/iam"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

// handlerDeps is shared by every handler constructor.
type handlerDeps struct {
	iam             gatewayService
	cookie          middleware.CookieConfig
	limiter         ratelimit.Limiter
	metrics         *telemetry.Metrics
	logger          *zap.Logger
	forwardedSecret []byte
	now             func() time.Time
}

// allow consumes one attempt of scope for the request. A limiter failure
// fails open so an unreachable Redis does not lock everybody out.
func (d *handlerDeps) allow(ctx context.Context, scope string, r *http.Request, email string) bool {
	if d.limiter == nil {
		return true
	}
	ok, err := d.limiter.Allow(ctx, ratelimit.Key(scope, clientIP(r), iam.NormalizeEmail(email)))
	if err != nil {
		d.logger.Warn("rate limiter unavailable, allowing request",
			zap.String("scope", scope), zap.Error(err))
		return true
	}
	if !ok {
		d.metrics.RecordRateLimited(scope)
		d.logger.Warn("rate limit exceeded",
			zap.String("scope", scope), zap.String("remote", clientIP(r)))
	}
	return ok
}

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// HandleRegister handles POST /auth/register.
// The account starts pending; admins are notified by the IAM service.
func HandleRegister(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.logger, "register", err)
			return
		}
		if err := iam.ValidateRegistration(req.Email, req.Password, req.ConfirmPassword); err != nil {
			writeError(w, r, d.logger, "register", err)
			return
		}

		user, err := d.iam.Register(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, d.logger, "register", err)
			return
		}
		writeJSON(w, http.StatusCreated, registerResponse{Message: msgRegistrationSent, User: user})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// HandleLogin handles POST /auth/login.
//
// Flow:
//  1. Reject when the (ip, email) budget is exhausted
//  2. Authenticate; unknown email and wrong password share one message
//  3. Create a session and set its token as the session cookie
func HandleLogin(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, d.logger, "login", err)
			return
		}
		if iam.NormalizeEmail(req.Email) == "" || req.Password == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: iam.MsgCredentialsRequired})
			return
		}
		if !d.allow(ctx, "login", r, req.Email) {
			writeError(w, r, d.logger, "login", ErrRateLimited)
			return
		}

		user, err := d.iam.Authenticate(ctx, req.Email, req.Password)
		if err != nil {
			writeError(w, r, d.logger, "login", err)
			return
		}

		session, token, err := d.iam.CreateSession(ctx, user.ID, iam.SessionMeta{
			UserAgent: r.UserAgent(),
			IPAddress: clientIP(r),
		})
		if err != nil {
			writeError(w, r, d.logger, "create session", err)
			return
		}

		middleware.SetSessionCookie(w, d.cookie, token, session.ExpiresAt)
		writeJSON(w, http.StatusOK, loginResponse{User: user, ExpiresAt: session.ExpiresAt})
	}
}

type logoutRequest struct {
	Redirect string `json:"redirect"`
}

// HandleLogout handles POST and GET /auth/logout.
// The session is revoked server-side and the cookie cleared. GET requests
// are redirected to ?redirect= when it is local or a catalog app.
func HandleLogout(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if principal, ok := middleware.PrincipalFromContext(ctx); ok {
			if err := d.iam.RevokeSession(ctx, principal.SessionID); err != nil {
				writeError(w, r, d.logger, "logout", err)
				return
			}
		}
		middleware.ClearSessionCookie(w, d.cookie)

		if r.Method == http.MethodGet {
			target := safeRedirect(r.URL.Query().Get("redirect"), d.iam.Catalog())
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		var req logoutRequest
		_ = decodeJSON(r, &req)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"redirect": safeRedirect(req.Redirect, d.iam.Catalog()),
		})
	}
}

type sessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	User          *models.User    `json:"user"`
	Apps          catalog.Catalog `json:"apps"`
}

// HandleSession handles GET /api/auth/session.
// Reverse proxies call it before forwarding to an app; the identity is
// returned in the body and in the forwarded-user headers.
func HandleSession(d *handlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
			return
		}

		user := principal.User
		if encoded, err := auth.EncodeForwardedUser(user); err != nil {
			d.logger.Error("failed to encode forwarded user", zap.Int64("user_id", user.ID), zap.Error(err))
		} else {
			w.Header().Set(auth.ForwardedUserHeader, encoded)
		}

		if len(d.forwardedSecret) > 0 {
			token, err := auth.SignForwardedToken(d.forwardedSecret, user.ID, auth.ForwardedClaims{
				Email:   user.Email,
				Name:    user.FullName,
				IsAdmin: user.IsAdmin,
				Apps:    principal.Apps.Slugs(),
			}, d.now())
			if err != nil {
				d.logger.Error("failed to sign forwarded token", zap.Int64("user_id", user.ID), zap.Error(err))
			} else {
				w.Header().Set(auth.ForwardedUserTokenHeader, token)
			}
		}

		apps := principal.Apps
		if apps == nil {
			apps = catalog.Catalog{}
		}
		writeJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: user, Apps: apps})
	}
}
