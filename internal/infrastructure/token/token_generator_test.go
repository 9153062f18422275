package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasher(t *testing.T) {
	h := NewHasher()
	hash := h.Hash("eyJhbGciOi.payload.sig")

	assert.Len(t, hash, 64)
	assert.Equal(t, hash, h.Hash("eyJhbGciOi.payload.sig"))
	assert.True(t, h.Verify("eyJhbGciOi.payload.sig", hash))
	assert.False(t, h.Verify("eyJhbGciOi.payload.sig2", hash))
}

func TestEqualSecrets(t *testing.T) {
	assert.True(t, EqualSecrets("admin-key", "admin-key"))
	assert.False(t, EqualSecrets("admin-kez", "admin-key"))
	assert.False(t, EqualSecrets("", ""), "an unset secret never matches")
}
