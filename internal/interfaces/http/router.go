package http

import (
	"github.com/repolens/gatekeeper/internal/interfaces/http/middleware"
	"github.com/repolens/gatekeeper/internal/interfaces/http/routes"
)

// SetupRoutes registers middleware and every route group. Billing routes
// exist only with a Stripe key; admin routes only with an admin key.
func (c *Container) SetupRoutes() {
	c.engine.Use(middleware.RequestID())
	c.engine.Use(middleware.Logger(c.log.Named("http")))
	c.engine.Use(middleware.Recovery(c.log.Named("recovery")))
	c.engine.Use(middleware.SecurityHeaders())
	c.engine.Use(middleware.CORS(c.cfg.Server.PluginOrigin))

	c.engine.GET("/health", c.hdlrs.health.Health)

	routes.SetupGatewayRoutes(c.engine, &routes.GatewayRouteConfig{
		GatewayHandler: c.hdlrs.gateway,
		WebhookHandler: c.hdlrs.webhook,
		AuthMiddleware: c.authMiddleware,
		RateLimiter:    c.rateLimiter,
		MinVersion:     c.cfg.Plugin.MinVersion,
	})

	routes.SetupHandoffRoutes(c.engine, &routes.HandoffRouteConfig{
		HandoffHandler: c.hdlrs.handoff,
		RateLimiter:    c.rateLimiter,
	})

	if c.svcs.stripe.Enabled() {
		routes.SetupBillingRoutes(c.engine, &routes.BillingRouteConfig{
			BillingHandler: c.hdlrs.billing,
			AuthMiddleware: c.authMiddleware,
		})
	} else {
		c.log.Infow("stripe secret key not set, billing routes disabled")
	}

	if c.cfg.Admin.APIKey != "" {
		routes.SetupAdminRoutes(c.engine, &routes.AdminRouteConfig{
			AdminPlanHandler: c.hdlrs.admin,
			APIKey:           c.cfg.Admin.APIKey,
		})
	}
}
