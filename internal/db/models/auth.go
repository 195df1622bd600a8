package models

import (
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// User represents a gateway account.
// Email is stored lowercased. PasswordHash holds the bcrypt hash and never
// leaves the store/auth boundary; it is excluded from JSON.
// An admin is always treated as approved regardless of the Approved column.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Email        string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	FullName     string    `bun:"full_name,notnull,default:''" json:"fullName"`
	JobTitle     string    `bun:"job_title,notnull,default:''" json:"jobTitle"`
	Phone        string    `bun:"phone,notnull,default:''" json:"phone"`
	IsAdmin      bool      `bun:"is_admin,notnull,default:false" json:"isAdmin"`
	Approved     bool      `bun:"approved,notnull,default:false" json:"approved"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`

	Apps        []*UserApp `bun:"rel:has-many,join:id=user_id" json:"-"`
	AllowedApps []string   `bun:"-" json:"allowedApps"`
}

// IsApproved reports whether the account may sign in.
func (u *User) IsApproved() bool {
	return u != nil && (u.IsAdmin || u.Approved)
}

// SyncAllowedApps copies the loaded entitlement rows into AllowedApps, sorted.
func (u *User) SyncAllowedApps() {
	slugs := make([]string, 0, len(u.Apps))
	for _, app := range u.Apps {
		slugs = append(slugs, app.AppSlug)
	}
	sort.Strings(slugs)
	u.AllowedApps = slugs
}

// UserApp grants one user access to one catalog application.
type UserApp struct {
	bun.BaseModel `bun:"table:user_apps,alias:ua"`

	UserID    int64     `bun:"user_id,pk"`
	AppSlug   string    `bun:"app_slug,pk"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Session is the server-side record behind a session cookie.
// Only the SHA-256 hash of the cookie token is stored.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`

	ID         string    `bun:"id,pk"`
	UserID     int64     `bun:"user_id,notnull"`
	TokenHash  string    `bun:"token_hash,notnull,unique"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt time.Time `bun:"last_used_at,notnull,default:current_timestamp"`
	UserAgent  *string   `bun:"user_agent"`
	IPAddress  *string   `bun:"ip_address"`
	Revoked    bool      `bun:"revoked,notnull,default:false"`
}
