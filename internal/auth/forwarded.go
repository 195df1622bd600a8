package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// ForwardedUserHeader carries the base64url JSON of the signed-in user
	// for downstream apps sitting behind the gateway.
	ForwardedUserHeader = "X-Forwarded-User"

	// ForwardedUserTokenHeader carries an HS256 JWT downstream apps can verify
	// with the shared session secret.
	ForwardedUserTokenHeader = "X-Forwarded-User-Token"

	// ForwardedTokenIssuer is the iss claim of forwarded identity tokens.
	ForwardedTokenIssuer = "modiniapps"

	// ForwardedTokenTTL bounds how long a forwarded identity token is accepted.
	ForwardedTokenTTL = 5 * time.Minute
)

// ErrNoSecret is returned when signing is requested without a secret.
var ErrNoSecret = errors.New("forwarded token secret is empty")

// ForwardedClaims is the payload of X-Forwarded-User-Token.
type ForwardedClaims struct {
	Email   string   `json:"email"`
	Name    string   `json:"name,omitempty"`
	IsAdmin bool     `json:"is_admin"`
	Apps    []string `json:"apps"`
	jwt.RegisteredClaims
}

// EncodeForwardedUser returns the base64url (unpadded) JSON encoding of v.
func EncodeForwardedUser(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode forwarded user: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// SignForwardedToken signs claims for userID with secret using HS256.
func SignForwardedToken(secret []byte, userID int64, claims ForwardedClaims, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    ForwardedTokenIssuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ForwardedTokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign forwarded token: %w", err)
	}
	return signed, nil
}

// ParseForwardedToken verifies a token produced by SignForwardedToken.
func ParseForwardedToken(secret []byte, raw string) (*ForwardedClaims, error) {
	claims := &ForwardedClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ForwardedTokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse forwarded token: %w", err)
	}
	return claims, nil
}
