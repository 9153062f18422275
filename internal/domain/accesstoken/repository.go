package accesstoken

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, token *AccessToken) error
	// GetByHash returns ErrTokenNotFound when no record matches.
	GetByHash(ctx context.Context, tokenHash string) (*AccessToken, error)
	// MarkRevoked sets revoked_at unless already set. Repeated calls succeed.
	MarkRevoked(ctx context.Context, tokenHash string, at time.Time) error
	UpdateLastUsed(ctx context.Context, tokenHash string, at time.Time) error
	RevokeAllForSubject(ctx context.Context, subject string, at time.Time) (int64, error)
}

var ErrTokenNotFound = Invalid(ReasonNotFound)
