package http

import (
	"context"

	"github.com/repolens/gatekeeper/internal/interfaces/http/handlers"
)

type allHandlers struct {
	gateway *handlers.GatewayHandler
	webhook *handlers.WebhookHandler
	billing *handlers.BillingHandler
	handoff *handlers.HandoffHandler
	admin   *handlers.AdminPlanHandler
	health  *handlers.HealthHandler
}

func (c *Container) initHandlers() *allHandlers {
	return &allHandlers{
		gateway: handlers.NewGatewayHandler(
			c.ucs.exchangeSession, c.ucs.userInfo, c.ucs.trackUsage, c.ucs.logout,
			c.cfg.Auth.Session.CookieName, c.log.Named("gateway_handler")),
		webhook: handlers.NewWebhookHandler(c.svcs.synchronizer, c.log.Named("webhook_handler")),
		billing: handlers.NewBillingHandler(c.ucs.checkout, c.ucs.portal, c.log.Named("billing_handler")),
		handoff: handlers.NewHandoffHandler(c.svcs.broker, c.log.Named("handoff_handler")),
		admin:   handlers.NewAdminPlanHandler(c.svcs.plans, c.log.Named("admin_handler")),
		health:  handlers.NewHealthHandler(c.pingDB),
	}
}

func (c *Container) pingDB(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
