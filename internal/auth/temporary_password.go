package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// TemporaryPasswordAlphabet omits look-alike characters (0/O, 1/l/I).
const TemporaryPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#$%^&*"

// DefaultTemporaryPasswordLength is used when approving accounts.
const DefaultTemporaryPasswordLength = 16

// ErrInvalidLength is returned for non-positive password lengths.
var ErrInvalidLength = errors.New("temporary password length must be positive")

// GenerateTemporaryPassword draws length characters uniformly from
// TemporaryPasswordAlphabet using crypto/rand.
func GenerateTemporaryPassword(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}

	max := big.NewInt(int64(len(TemporaryPasswordAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate temporary password: %w", err)
		}
		out[i] = TemporaryPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}
