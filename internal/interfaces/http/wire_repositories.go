package http

import (
	"github.com/repolens/gatekeeper/internal/domain/accesstoken"
	"github.com/repolens/gatekeeper/internal/domain/subscription"
	"github.com/repolens/gatekeeper/internal/domain/usage"
	"github.com/repolens/gatekeeper/internal/domain/user"
	"github.com/repolens/gatekeeper/internal/infrastructure/repository"
)

type repositories struct {
	user         user.Repository
	accessToken  accesstoken.Repository
	plan         subscription.PlanRepository
	subscription subscription.SubscriptionRepository
	usageCounter usage.CounterRepository
	usageEvent   usage.EventRepository
}

func (c *Container) initRepositories() *repositories {
	return &repositories{
		user:         repository.NewUserRepository(c.db, c.log),
		accessToken:  repository.NewAccessTokenRepository(c.db, c.log),
		plan:         repository.NewPlanRepository(c.db, c.log),
		subscription: repository.NewSubscriptionRepository(c.db, c.log),
		usageCounter: repository.NewUsageCounterRepository(c.db, c.log),
		usageEvent:   repository.NewUsageEventRepository(c.db, c.log),
	}
}
