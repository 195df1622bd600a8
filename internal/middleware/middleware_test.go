package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/services/iam"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

type stubAuthenticator struct {
	principal *iam.Principal
	err       error
	seen      iam.AuthRequest
}

func (s *stubAuthenticator) AuthenticateRequest(ctx context.Context, req iam.AuthRequest) (*iam.Principal, error) {
	s.seen = req
	return s.principal, s.err
}

var testCookie = CookieConfig{Name: "test.sid", Domain: "example.com", Secure: true}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestPrincipalMiddleware_SetsPrincipalAndRenewsCookie(t *testing.T) {
	expires := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	stub := &stubAuthenticator{principal: &iam.Principal{
		User:      &models.User{ID: 7, Email: "user@example.com"},
		SessionID: "sess-1",
		ExpiresAt: expires,
	}}

	var got *iam.Principal
	handler := PrincipalMiddleware(stub, testCookie, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/apps", nil)
	req.AddCookie(&http.Cookie{Name: "test.sid", Value: "raw-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.UserID())
	require.Len(t, stub.seen.Cookies, 1)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test.sid", cookies[0].Name)
	assert.Equal(t, "raw-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.True(t, expires.Equal(cookies[0].Expires))
}

func TestPrincipalMiddleware_Anonymous(t *testing.T) {
	handler := PrincipalMiddleware(&stubAuthenticator{}, testCookie, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := PrincipalFromContext(r.Context())
		assert.False(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestPrincipalMiddleware_StoreFailure(t *testing.T) {
	stub := &stubAuthenticator{err: errors.New("database is locked")}
	handler := PrincipalMiddleware(stub, testCookie, nil)(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database is locked")
}

func TestRequireAuthAndAdmin(t *testing.T) {
	member := &iam.Principal{User: &models.User{ID: 1}}
	admin := &iam.Principal{User: &models.User{ID: 2, IsAdmin: true}}

	tests := []struct {
		name      string
		principal *iam.Principal
		wantAuth  int
		wantAdmin int
	}{
		{name: "anonymous", principal: nil, wantAuth: http.StatusUnauthorized, wantAdmin: http.StatusUnauthorized},
		{name: "member", principal: member, wantAuth: http.StatusNoContent, wantAdmin: http.StatusForbidden},
		{name: "admin", principal: admin, wantAuth: http.StatusNoContent, wantAdmin: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(SetPrincipal(req.Context(), tt.principal))
			}

			rec := httptest.NewRecorder()
			RequireAuth(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantAuth, rec.Code)

			rec = httptest.NewRecorder()
			RequireAdmin(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantAdmin, rec.Code)
			if tt.wantAdmin >= 400 {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRequestTelemetry_UsesRoutePattern(t *testing.T) {
	metrics := telemetry.NewMetrics("test")
	r := chi.NewRouter()
	r.Use(RequestTelemetry(nil, metrics))
	r.Get("/apps/{slug}", okHandler)

	for _, slug := range []string{"crm", "wiki", "hr"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps/"+slug, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	count, err := testutil.GatherAndCount(metrics.Registry(), "test_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "all slugs share one series")
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
