package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// DefaultSessionDuration is the rolling session lifetime (7 days)
	DefaultSessionDuration = 7 * 24 * time.Hour

	// TokenLength is the length of generated opaque tokens in bytes
	TokenLength = 32
)

// GenerateToken generates a cryptographically secure random opaque token.
// Used for session cookies and password reset links.
// Returns: token (hex string), token hash (SHA256 hex), error
func GenerateToken() (string, string, error) {
	tokenBytes := make([]byte, TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("generate random token: %w", err)
	}

	token := hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// HashToken hashes an opaque token for storage/lookup
// Returns SHA256 hex hash
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// CalculateExpiry returns from + ttl, falling back to DefaultSessionDuration.
func CalculateExpiry(from time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultSessionDuration
	}
	return from.Add(ttl)
}

// IsExpired reports whether expiresAt lies strictly before now.
func IsExpired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}
