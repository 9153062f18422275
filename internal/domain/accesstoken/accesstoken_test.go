package accesstoken

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenCheck(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tok, err := NewAccessToken("u1", "hash", issued, issued.Add(7*24*time.Hour))
	require.NoError(t, err)

	assert.NoError(t, tok.Check(issued.Add(time.Hour)))
	assert.Equal(t, ReasonExpired, ReasonOf(tok.Check(issued.Add(7*24*time.Hour))))

	assert.True(t, tok.Revoke(issued.Add(time.Minute)))
	assert.False(t, tok.Revoke(issued.Add(2*time.Minute)))
	assert.Equal(t, ReasonRevoked, ReasonOf(tok.Check(issued.Add(8*24*time.Hour))))
}

func TestNewAccessTokenValidates(t *testing.T) {
	now := time.Now()
	_, err := NewAccessToken("", "h", now, now.Add(time.Hour))
	assert.Error(t, err)
	_, err = NewAccessToken("u1", "h", now, now)
	assert.Error(t, err)
}

func TestInvalidTokenErrorMatching(t *testing.T) {
	err := fmt.Errorf("validate: %w", Invalid(ReasonSignature))

	assert.True(t, errors.Is(err, ErrInvalidToken))
	assert.Equal(t, ReasonSignature, ReasonOf(err))
	assert.Equal(t, InvalidReason(""), ReasonOf(errors.New("boom")))
}
