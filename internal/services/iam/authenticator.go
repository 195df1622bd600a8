package iam

import (
	"context"
	"net/http"
)

// Authenticator resolves request credentials into a Principal.
//
// Return (nil, nil) when the request carries no credentials this
// authenticator understands, or when they no longer name a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*Principal, error)
}

// AuthRequest carries the request data authenticators inspect.
type AuthRequest struct {
	Headers http.Header
	Cookies []*http.Cookie
}

// Cookie returns the value of the named cookie, or "".
func (r AuthRequest) Cookie(name string) string {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
