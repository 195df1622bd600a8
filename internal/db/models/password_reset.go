package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PasswordResetToken is a single-use credential for the forgot-password flow.
// Token holds the SHA-256 hash of the value mailed to the user.
// Used only ever moves from false to true; used rows are kept.
type PasswordResetToken struct {
	bun.BaseModel `bun:"table:password_reset_tokens,alias:prt"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	Token     string    `bun:"token,notnull,unique"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	Used      bool      `bun:"used,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Usable reports whether the token can still be redeemed at now.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t != nil && !t.Used && !now.After(t.ExpiresAt)
}
