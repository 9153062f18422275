package usecases

import (
	"context"

	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type LogoutUseCase struct {
	tokens TokenStore
	logger logger.Interface
}

func NewLogoutUseCase(tokens TokenStore, logger logger.Interface) *LogoutUseCase {
	return &LogoutUseCase{tokens: tokens, logger: logger}
}

func (uc *LogoutUseCase) Execute(ctx context.Context, token string) error {
	return uc.tokens.Revoke(ctx, token)
}
