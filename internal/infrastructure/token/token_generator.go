// Package token hashes bearer credentials for storage and compares secrets
// in constant time.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

type Hasher interface {
	Hash(plainToken string) string
	Verify(plainToken, hash string) bool
}

type sha256Hasher struct{}

func NewHasher() Hasher {
	return sha256Hasher{}
}

// Hash returns the hex SHA-256 of the token; 64 characters.
func (sha256Hasher) Hash(plainToken string) string {
	sum := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(sum[:])
}

func (h sha256Hasher) Verify(plainToken, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Hash(plainToken)), []byte(hash)) == 1
}

// EqualSecrets compares two secrets without leaking their common prefix
// length through timing.
func EqualSecrets(provided, expected string) bool {
	if expected == "" {
		return false
	}
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
