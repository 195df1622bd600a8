package iam

import (
	"time"

	"github.com/markgwharry/modiniapps/internal/catalog"
	"github.com/markgwharry/modiniapps/internal/db/models"
)

// Principal is the authenticated identity of one request.
//
// It is built fresh from the store on every request and never modified
// afterwards. Flags and entitlements therefore reflect the latest admin
// changes without a new login.
type Principal struct {
	// User is the sanitized account, AllowedApps populated.
	User *models.User

	// SessionID references sessions.id.
	SessionID string

	// ExpiresAt is the session expiry after this request extended it.
	ExpiresAt time.Time

	// Apps is the catalog filtered to the user's entitlements.
	Apps catalog.Catalog
}

// UserID returns the id of the authenticated user.
func (p *Principal) UserID() int64 {
	if p == nil || p.User == nil {
		return 0
	}
	return p.User.ID
}

// IsAdmin reports whether the principal holds the admin flag.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.User != nil && p.User.IsAdmin
}

// CanAccess reports whether slug is among the principal's visible apps.
func (p *Principal) CanAccess(slug string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Apps.Find(slug)
	return ok
}
