// Package cryptox wraps the hashing primitives used for credentials:
// bcrypt for passwords and SHA-256 for one-time tokens kept at rest.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for new hashes.
var PasswordCost = bcrypt.DefaultCost

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
}

// CheckPassword reports whether password matches hash. A malformed hash is
// reported as an error; a plain mismatch is (false, nil).
func CheckPassword(hash []byte, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// HashToken returns the SHA-256 of a random token so that only the digest
// needs to be stored.
func HashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// EqualTokenHash compares two digests in constant time.
func EqualTokenHash(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
