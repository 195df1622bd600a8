// Package ratelimit throttles credential endpoints with fixed windows.
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrUnavailable wraps backend failures. Callers decide whether to fail open.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Config is the fixed-window budget: MaxAttempts per Window per key.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter reports whether another attempt for key fits in the current window.
// Every call counts as an attempt.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Key joins a scope and its identifying parts, e.g. Key("login", ip, email).
// Parts are lowercased so "Ada@x" and "ada@x" share a budget.
func Key(scope string, parts ...string) string {
	var b strings.Builder
	b.WriteString("ratelimit:")
	b.WriteString(scope)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(strings.ToLower(strings.TrimSpace(p)))
	}
	return b.String()
}
