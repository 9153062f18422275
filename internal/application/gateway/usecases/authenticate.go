package usecases

import (
	"context"
	"time"

	"github.com/repolens/gatekeeper/internal/domain/accesstoken"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// AuthenticateUseCase resolves a bearer token to its subject.
type AuthenticateUseCase struct {
	tokens      TokenStore
	readTimeout time.Duration
	logger      logger.Interface
}

func NewAuthenticateUseCase(tokens TokenStore, readTimeout time.Duration, logger logger.Interface) *AuthenticateUseCase {
	return &AuthenticateUseCase{tokens: tokens, readTimeout: readTimeout, logger: logger}
}

// Execute returns *accesstoken.InvalidTokenError for rejected tokens and an
// unavailable AppError when the token store is too slow.
func (uc *AuthenticateUseCase) Execute(ctx context.Context, token string) (string, error) {
	ctx, cancel := withReadTimeout(ctx, uc.readTimeout)
	defer cancel()

	subject, err := uc.tokens.Validate(ctx, token)
	if err != nil {
		if reason := accesstoken.ReasonOf(err); reason != "" {
			uc.logger.Infow("access token rejected", "reason", reason)
			return "", err
		}
		return "", transient(ctx, err)
	}
	return subject, nil
}
