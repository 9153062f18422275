// Package auth issues, validates and revokes gateway access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/repolens/gatekeeper/internal/domain/accesstoken"
	infraauth "github.com/repolens/gatekeeper/internal/infrastructure/auth"
	"github.com/repolens/gatekeeper/internal/infrastructure/token"
	"github.com/repolens/gatekeeper/internal/shared/biztime"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// Signer produces and checks the signed token value.
type Signer interface {
	Sign(subject string, now time.Time) (string, *infraauth.AccessClaims, error)
	Verify(tokenString string) (*infraauth.AccessClaims, error)
}

// TokenStore binds signed tokens to persisted records. A token is usable only
// while its record exists, is unrevoked and is unexpired.
type TokenStore struct {
	signer Signer
	hasher token.Hasher
	repo   accesstoken.Repository
	logger logger.Interface
}

func NewTokenStore(signer Signer, hasher token.Hasher, repo accesstoken.Repository, logger logger.Interface) *TokenStore {
	return &TokenStore{
		signer: signer,
		hasher: hasher,
		repo:   repo,
		logger: logger,
	}
}

// Issue signs a new token for subject and persists its record.
func (s *TokenStore) Issue(ctx context.Context, subject string) (string, time.Time, error) {
	now := biztime.NowUTC()
	signed, claims, err := s.signer.Sign(subject, now)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := claims.ExpiresAt.Time.UTC()
	record, err := accesstoken.NewAccessToken(subject, s.hasher.Hash(signed), now, expiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build access token: %w", err)
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Errorw("failed to persist access token", "error", err, "subject", subject)
		return "", time.Time{}, err
	}

	s.logger.Infow("access token issued", "subject", subject, "jti", claims.ID, "expires_at", expiresAt)
	return signed, expiresAt, nil
}

// Validate returns the token's subject. Rejections are
// *accesstoken.InvalidTokenError; anything else is a storage failure.
func (s *TokenStore) Validate(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", accesstoken.Invalid(accesstoken.ReasonMissing)
	}

	claims, err := s.signer.Verify(tokenString)
	if err != nil {
		return "", err
	}

	hash := s.hasher.Hash(tokenString)
	record, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return "", err
	}

	now := biztime.NowUTC()
	if err := record.Check(now); err != nil {
		return "", err
	}
	if record.Subject() != claims.Subject {
		s.logger.Warnw("access token subject mismatch", "record_subject", record.Subject(), "claims_subject", claims.Subject)
		return "", accesstoken.Invalid(accesstoken.ReasonSignature)
	}

	if err := s.repo.UpdateLastUsed(ctx, hash, now); err != nil {
		s.logger.Warnw("failed to update token last used", "error", err, "subject", record.Subject())
	}

	return record.Subject(), nil
}

// Revoke is idempotent for known tokens and returns a not_found
// InvalidTokenError for unknown ones.
func (s *TokenStore) Revoke(ctx context.Context, tokenString string) error {
	if tokenString == "" {
		return accesstoken.Invalid(accesstoken.ReasonMissing)
	}
	if err := s.repo.MarkRevoked(ctx, s.hasher.Hash(tokenString), biztime.NowUTC()); err != nil {
		if !errors.Is(err, accesstoken.ErrInvalidToken) {
			s.logger.Errorw("failed to revoke access token", "error", err)
		}
		return err
	}
	s.logger.Infow("access token revoked")
	return nil
}

// RevokeAll revokes every live token of subject.
func (s *TokenStore) RevokeAll(ctx context.Context, subject string) (int64, error) {
	n, err := s.repo.RevokeAllForSubject(ctx, subject, biztime.NowUTC())
	if err != nil {
		s.logger.Errorw("failed to revoke tokens", "error", err, "subject", subject)
		return 0, err
	}
	s.logger.Infow("access tokens revoked", "subject", subject, "count", n)
	return n, nil
}
