package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/repolens/gatekeeper/internal/domain/user"
	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type CreatePortalUseCase struct {
	users    user.Repository
	provider Provider
	logger   logger.Interface
}

func NewCreatePortalUseCase(users user.Repository, provider Provider, logger logger.Interface) *CreatePortalUseCase {
	return &CreatePortalUseCase{users: users, provider: provider, logger: logger}
}

func (uc *CreatePortalUseCase) Execute(ctx context.Context, subject string) (string, error) {
	u, err := uc.users.GetBySubject(ctx, subject)
	if errors.Is(err, user.ErrUserNotFound) {
		return "", apperrors.NewNotFoundError("User not found")
	}
	if err != nil {
		return "", err
	}
	if u.BillingCustomerID() == "" {
		return "", apperrors.NewValidationError("No billing account for this user")
	}

	url, err := uc.provider.CreatePortalSession(ctx, u.BillingCustomerID())
	if err != nil {
		return "", fmt.Errorf("billing portal: %w", err)
	}
	return url, nil
}
