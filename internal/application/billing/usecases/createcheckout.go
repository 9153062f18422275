package usecases

import (
	"context"
	"errors"
	"fmt"

	billingservices "github.com/repolens/gatekeeper/internal/application/billing/services"
	"github.com/repolens/gatekeeper/internal/domain/subscription"
	"github.com/repolens/gatekeeper/internal/domain/user"
	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type CreateCheckoutCommand struct {
	Subject  string
	PlanSlug string
}

type CreateCheckoutUseCase struct {
	users    user.Repository
	plans    billingservices.PlanLookup
	resolver *billingservices.PlanResolver
	provider Provider
	logger   logger.Interface
}

func NewCreateCheckoutUseCase(
	users user.Repository,
	plans billingservices.PlanLookup,
	resolver *billingservices.PlanResolver,
	provider Provider,
	logger logger.Interface,
) *CreateCheckoutUseCase {
	return &CreateCheckoutUseCase{
		users:    users,
		plans:    plans,
		resolver: resolver,
		provider: provider,
		logger:   logger,
	}
}

// Execute returns the hosted checkout URL. The user's billing customer is
// created on first checkout and linked so webhooks can find the subject.
func (uc *CreateCheckoutUseCase) Execute(ctx context.Context, cmd CreateCheckoutCommand) (string, error) {
	plan, err := uc.plans.GetPlan(ctx, cmd.PlanSlug)
	if errors.Is(err, subscription.ErrPlanNotFound) {
		return "", apperrors.NewNotFoundError("Plan not found", cmd.PlanSlug)
	}
	if err != nil {
		return "", err
	}
	if plan.IsDefault() || !plan.IsActive() {
		return "", apperrors.NewValidationError("Plan is not available for purchase", cmd.PlanSlug)
	}
	priceID := uc.resolver.PriceFor(plan)
	if priceID == "" {
		return "", apperrors.NewValidationError("Plan has no price", cmd.PlanSlug)
	}

	customerID, err := EnsureCustomer(ctx, uc.users, uc.provider, cmd.Subject)
	if err != nil {
		return "", err
	}

	url, err := uc.provider.CreateCheckoutSession(ctx, customerID, priceID, plan.Slug())
	if err != nil {
		return "", fmt.Errorf("checkout: %w", err)
	}

	uc.logger.Infow("checkout session created", "subject", cmd.Subject, "plan", plan.Slug())
	return url, nil
}

// EnsureCustomer returns the subject's billing customer, creating and
// linking one when absent.
func EnsureCustomer(ctx context.Context, users user.Repository, provider Provider, subject string) (string, error) {
	u, err := users.GetBySubject(ctx, subject)
	if errors.Is(err, user.ErrUserNotFound) {
		return "", apperrors.NewNotFoundError("User not found")
	}
	if err != nil {
		return "", err
	}
	if u.BillingCustomerID() != "" {
		return u.BillingCustomerID(), nil
	}

	customerID, err := provider.CreateCustomer(ctx, u.Subject(), u.Email(), u.Name())
	if err != nil {
		return "", err
	}
	if err := u.LinkBillingCustomer(customerID); err != nil {
		return "", err
	}
	if err := users.Update(ctx, u); err != nil {
		return "", err
	}
	return customerID, nil
}
