// Package id generates short, URL-safe, prefixed identifiers.
package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	DefaultLength = 12

	PrefixHandoff = "hf"
)

var alphabetLen = big.NewInt(int64(len(alphabet)))

// Generate returns a cryptographically random base62 string.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// GenerateWithPrefix returns "prefix_<random>".
func GenerateWithPrefix(prefix string, length int) (string, error) {
	s, err := Generate(length)
	if err != nil {
		return "", err
	}
	return prefix + "_" + s, nil
}

// ExtractShortID checks the prefix of a prefixed ID and returns the random part.
func ExtractShortID(prefixedID, expectedPrefix string) (string, error) {
	prefix, short, ok := strings.Cut(prefixedID, "_")
	if !ok || short == "" {
		return "", fmt.Errorf("invalid prefixed ID format: %s", prefixedID)
	}
	if prefix != expectedPrefix {
		return "", fmt.Errorf("invalid prefix: expected %s, got %s", expectedPrefix, prefix)
	}
	return short, nil
}

func NewHandoffID() (string, error) {
	return GenerateWithPrefix(PrefixHandoff, DefaultLength)
}

func ParseHandoffID(prefixedID string) (string, error) {
	return ExtractShortID(prefixedID, PrefixHandoff)
}
