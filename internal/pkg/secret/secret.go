// Package secret generates and hashes one-time verification codes.
//
// Plaintext codes exist only in the issuing request's memory and in the
// delivery payload. Stores keep the SHA-256 hash; comparisons go through
// Equal, which is constant-time.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// NumericCode returns a random code of exactly `digits` decimal digits,
// left-padded with zeros.
func NumericCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", fmt.Errorf("unsupported code length %d", digits)
	}
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

// Hash returns the hex-encoded SHA-256 digest of a plaintext code.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Equal compares two hex-encoded digests in constant time.
func Equal(hashA, hashB string) bool {
	a, err := hex.DecodeString(hashA)
	if err != nil {
		return false
	}
	b, err := hex.DecodeString(hashB)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
