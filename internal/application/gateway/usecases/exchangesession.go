package usecases

import (
	"context"
	"time"

	"github.com/repolens/gatekeeper/internal/application/gateway/dto"
	"github.com/repolens/gatekeeper/internal/domain/user"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// ExchangeSessionUseCase turns an upstream web session into a gateway
// access token, upserting the user on the way.
type ExchangeSessionUseCase struct {
	sessions SessionVerifier
	users    user.Repository
	tokens   TokenStore
	tx       Transactor
	loginURL string
	logger   logger.Interface
}

func NewExchangeSessionUseCase(
	sessions SessionVerifier,
	users user.Repository,
	tokens TokenStore,
	tx Transactor,
	loginURL string,
	logger logger.Interface,
) *ExchangeSessionUseCase {
	return &ExchangeSessionUseCase{
		sessions: sessions,
		users:    users,
		tokens:   tokens,
		tx:       tx,
		loginURL: loginURL,
		logger:   logger,
	}
}

// Execute never fails for a missing or invalid session; the caller gets
// authenticated=false and the login URL instead.
func (uc *ExchangeSessionUseCase) Execute(ctx context.Context, rawSession string) (*dto.SessionExchangeDTO, error) {
	if rawSession == "" {
		return uc.unauthenticated(), nil
	}
	identity, err := uc.sessions.Verify(rawSession)
	if err != nil {
		uc.logger.Infow("upstream session rejected", "error", err)
		return uc.unauthenticated(), nil
	}

	candidate, err := user.NewUser(identity.Subject, identity.Email, identity.Name)
	if err != nil {
		uc.logger.Warnw("upstream session has unusable subject", "error", err)
		return uc.unauthenticated(), nil
	}

	var (
		stored    *user.User
		token     string
		expiresAt time.Time
	)
	err = uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		if stored, err = uc.users.Upsert(ctx, candidate); err != nil {
			return err
		}
		token, expiresAt, err = uc.tokens.Issue(ctx, stored.Subject())
		return err
	})
	if err != nil {
		uc.logger.Errorw("session exchange failed", "error", err, "subject", identity.Subject)
		return nil, err
	}

	u := dto.ToUserDTO(stored)
	return &dto.SessionExchangeDTO{
		Authenticated: true,
		Token:         token,
		ExpiresAt:     &expiresAt,
		User:          &u,
	}, nil
}

func (uc *ExchangeSessionUseCase) unauthenticated() *dto.SessionExchangeDTO {
	return &dto.SessionExchangeDTO{Authenticated: false, LoginURL: uc.loginURL}
}
