package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/markgwharry/modiniapps/internal/logging"
	"github.com/markgwharry/modiniapps/internal/services/iam"
)

// RequestAuthenticator resolves request credentials. iam.Service implements it.
type RequestAuthenticator interface {
	AuthenticateRequest(ctx context.Context, req iam.AuthRequest) (*iam.Principal, error)
}

// PrincipalMiddleware resolves the session cookie of every request.
//
//  1. Build an AuthRequest from the request headers and cookies
//  2. Call AuthenticateRequest, which reloads the user from the store
//  3. On success store the Principal in the context and re-issue the
//     cookie with the extended expiry
//  4. Continue; unauthenticated requests are rejected by RequireAuth
//
// A store failure answers 500 instead of silently treating the request as
// anonymous.
func PrincipalMiddleware(authn RequestAuthenticator, cookie CookieConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logging.OrNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, err := authn.AuthenticateRequest(ctx, iam.AuthRequest{
				Headers: r.Header,
				Cookies: r.Cookies(),
			})
			if err != nil {
				logger.Error("session resolution failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			if principal != nil {
				if c, err := r.Cookie(cookie.Name); err == nil {
					SetSessionCookie(w, cookie, c.Value, principal.ExpiresAt)
				}
				ctx = SetPrincipal(ctx, principal)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
