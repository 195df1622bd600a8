package middleware

import (
	"context"

	"github.com/markgwharry/modiniapps/internal/services/iam"
)

type principalContextKey struct{}

// SetPrincipal stores the authenticated principal in ctx.
func SetPrincipal(ctx context.Context, principal *iam.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the principal stored by SetPrincipal.
func PrincipalFromContext(ctx context.Context) (*iam.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(*iam.Principal)
	return principal, ok && principal != nil
}
