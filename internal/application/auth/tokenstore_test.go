package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/gatekeeper/internal/application/testutil"
	"github.com/repolens/gatekeeper/internal/domain/accesstoken"
	infraauth "github.com/repolens/gatekeeper/internal/infrastructure/auth"
	"github.com/repolens/gatekeeper/internal/infrastructure/token"
)

func newTestStore(ttl time.Duration) (*TokenStore, *testutil.MockAccessTokenRepository) {
	repo := testutil.NewMockAccessTokenRepository()
	signer := infraauth.NewJWTService("test-secret", "gatekeeper", ttl)
	return NewTokenStore(signer, token.NewHasher(), repo, testutil.NewMockLogger()), repo
}

func TestTokenStore_IssueValidateRevoke(t *testing.T) {
	store, repo := newTestStore(7 * 24 * time.Hour)
	ctx := context.Background()

	tok, expiresAt, err := store.Issue(ctx, "user_1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, 2*time.Second)

	subject, err := store.Validate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "user_1", subject)

	rec, err := repo.GetByHash(ctx, token.NewHasher().Hash(tok))
	require.NoError(t, err)
	assert.NotNil(t, rec.LastUsedAt())

	require.NoError(t, store.Revoke(ctx, tok))
	require.NoError(t, store.Revoke(ctx, tok), "revoking twice is fine")

	_, err = store.Validate(ctx, tok)
	assert.Equal(t, accesstoken.ReasonRevoked, accesstoken.ReasonOf(err))
}

// A correctly signed token whose record is gone is rejected.
func TestTokenStore_SignatureAloneIsInsufficient(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	signer := infraauth.NewJWTService("test-secret", "gatekeeper", time.Hour)

	orphan, _, err := signer.Sign("user_1", time.Now())
	require.NoError(t, err)

	_, err = store.Validate(context.Background(), orphan)
	assert.Equal(t, accesstoken.ReasonNotFound, accesstoken.ReasonOf(err))

	err = store.Revoke(context.Background(), orphan)
	assert.Equal(t, accesstoken.ReasonNotFound, accesstoken.ReasonOf(err))
}

func TestTokenStore_Rejections(t *testing.T) {
	store, repo := newTestStore(time.Hour)
	ctx := context.Background()

	_, err := store.Validate(ctx, "")
	assert.Equal(t, accesstoken.ReasonMissing, accesstoken.ReasonOf(err))

	_, err = store.Validate(ctx, "garbage")
	assert.Equal(t, accesstoken.ReasonMalformed, accesstoken.ReasonOf(err))

	foreign, _, err := infraauth.NewJWTService("other", "gatekeeper", time.Hour).Sign("user_1", time.Now())
	require.NoError(t, err)
	_, err = store.Validate(ctx, foreign)
	assert.Equal(t, accesstoken.ReasonSignature, accesstoken.ReasonOf(err))

	// Persisted expiry in the past while the signed claim is still valid.
	tok, _, err := store.Issue(ctx, "user_2")
	require.NoError(t, err)
	hash := token.NewHasher().Hash(tok)
	past := time.Now().Add(-2 * time.Hour)
	repo.Put(accesstoken.ReconstructAccessToken(1, "user_2", hash, past.Add(-time.Hour), past, nil, nil))

	_, err = store.Validate(ctx, tok)
	assert.Equal(t, accesstoken.ReasonExpired, accesstoken.ReasonOf(err))
}

func TestTokenStore_LastUsedFailureIsNotFatal(t *testing.T) {
	store, repo := newTestStore(time.Hour)
	repo.LastUsedError = errors.New("disk full")

	tok, _, err := store.Issue(context.Background(), "user_1")
	require.NoError(t, err)

	subject, err := store.Validate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user_1", subject)
}

func TestTokenStore_RevokeAll(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	ctx := context.Background()

	a, _, err := store.Issue(ctx, "user_1")
	require.NoError(t, err)
	_, _, err = store.Issue(ctx, "user_1")
	require.NoError(t, err)
	other, _, err := store.Issue(ctx, "user_2")
	require.NoError(t, err)

	n, err := store.RevokeAll(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = store.Validate(ctx, a)
	assert.Equal(t, accesstoken.ReasonRevoked, accesstoken.ReasonOf(err))
	_, err = store.Validate(ctx, other)
	assert.NoError(t, err)
}
