package http

import (
	"time"

	"github.com/repolens/gatekeeper/internal/application/auth"
	billingservices "github.com/repolens/gatekeeper/internal/application/billing/services"
	"github.com/repolens/gatekeeper/internal/application/handoff"
	subservices "github.com/repolens/gatekeeper/internal/application/subscription/services"
	usageservices "github.com/repolens/gatekeeper/internal/application/usage/services"
	infraauth "github.com/repolens/gatekeeper/internal/infrastructure/auth"
	"github.com/repolens/gatekeeper/internal/infrastructure/cache"
	"github.com/repolens/gatekeeper/internal/infrastructure/payment/stripe"
	"github.com/repolens/gatekeeper/internal/infrastructure/pubsub"
	"github.com/repolens/gatekeeper/internal/infrastructure/ratelimit"
	"github.com/repolens/gatekeeper/internal/infrastructure/token"
	"github.com/repolens/gatekeeper/internal/shared/db"
)

const handoffSweepInterval = 30 * time.Second

type allServices struct {
	tx            *db.TransactionManager
	sessions      *infraauth.SessionVerifier
	tokens        *auth.TokenStore
	plans         *subservices.PlanRegistry
	subscriptions *subservices.SubscriptionRecord
	counter       *usageservices.Counter
	stripe        *stripe.Client
	synchronizer  *billingservices.Synchronizer
	resolver      *billingservices.PlanResolver
	broker        *handoff.Broker
	rateLimiter   ratelimit.RateLimiter
}

func (c *Container) initServices() *allServices {
	cfg := c.cfg
	s := &allServices{
		tx:       db.NewTransactionManager(c.db),
		sessions: infraauth.NewSessionVerifier(cfg.Auth.Session.Secret, cfg.Auth.Session.Issuer),
	}

	jwtSvc := infraauth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.Auth.JWT.TokenTTL)
	s.tokens = auth.NewTokenStore(jwtSvc, token.NewHasher(), c.repos.accessToken, c.log.Named("token_store"))

	s.plans = subservices.NewPlanRegistry(c.repos.plan, c.log.Named("plan_registry"))

	// A nil *RedisSubscriptionCache must not reach the interface.
	var snapshotCache cache.SubscriptionCache
	if c.redis != nil {
		snapshotCache = cache.NewRedisSubscriptionCache(c.redis, cfg.Redis.CacheTTL, c.log.Named("subscription_cache"))
		if cfg.RateLimit.Enabled {
			s.rateLimiter = ratelimit.NewRedisRateLimiter(c.redis)
		}
	}
	s.subscriptions = subservices.NewSubscriptionRecord(
		c.repos.subscription, c.repos.user, s.plans, snapshotCache, s.tx, c.log.Named("subscription_record"))

	s.counter = usageservices.NewCounter(c.repos.usageCounter, c.log.Named("usage_counter"))

	s.stripe = stripe.NewClient(cfg.Stripe, c.log.Named("stripe"))
	s.resolver = billingservices.NewPlanResolver(cfg.Stripe.PricePlans, s.plans)
	s.synchronizer = billingservices.NewSynchronizer(
		stripe.NewWebhookVerifier(cfg.Stripe.WebhookSecret),
		s.subscriptions,
		s.resolver,
		cfg.Timeouts.Webhook,
		c.log.Named("billing_sync"),
	)

	var publisher pubsub.HandoffPublisher
	if c.handoffBus != nil {
		publisher = c.handoffBus
	}
	s.broker = handoff.NewBroker(cfg.Handoff.Timeout, cfg.Handoff.TrustedOrigins, s.tokens, publisher, c.log.Named("handoff"))

	return s
}
