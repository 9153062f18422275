package http

import (
	billingusecases "github.com/repolens/gatekeeper/internal/application/billing/usecases"
	gatewayusecases "github.com/repolens/gatekeeper/internal/application/gateway/usecases"
)

type allUseCases struct {
	authenticate    *gatewayusecases.AuthenticateUseCase
	exchangeSession *gatewayusecases.ExchangeSessionUseCase
	userInfo        *gatewayusecases.GetUserInfoUseCase
	trackUsage      *gatewayusecases.TrackUsageUseCase
	logout          *gatewayusecases.LogoutUseCase
	checkout        *billingusecases.CreateCheckoutUseCase
	portal          *billingusecases.CreatePortalUseCase
}

func (c *Container) initUseCases() *allUseCases {
	cfg := c.cfg
	s := c.svcs
	readTimeout := cfg.Timeouts.Read
	metered := cfg.Usage.MeteredActions

	return &allUseCases{
		authenticate: gatewayusecases.NewAuthenticateUseCase(s.tokens, readTimeout, c.log.Named("authenticate")),
		exchangeSession: gatewayusecases.NewExchangeSessionUseCase(
			s.sessions, c.repos.user, s.tokens, s.tx, cfg.Auth.Session.LoginURL, c.log.Named("exchange_session")),
		userInfo: gatewayusecases.NewGetUserInfoUseCase(
			c.repos.user, s.subscriptions, s.plans, s.counter, metered, readTimeout, c.log.Named("user_info")),
		trackUsage: gatewayusecases.NewTrackUsageUseCase(
			s.subscriptions, s.counter, c.repos.usageEvent, metered, readTimeout, c.log.Named("track_usage")),
		logout:   gatewayusecases.NewLogoutUseCase(s.tokens, c.log.Named("logout")),
		checkout: billingusecases.NewCreateCheckoutUseCase(c.repos.user, s.plans, s.resolver, s.stripe, c.log.Named("checkout")),
		portal:   billingusecases.NewCreatePortalUseCase(c.repos.user, s.stripe, c.log.Named("portal")),
	}
}
