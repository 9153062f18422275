package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/interfaces/http/handlers"
	"github.com/repolens/gatekeeper/internal/interfaces/http/middleware"
)

// GatewayRouteConfig holds dependencies for the plugin-facing routes.
type GatewayRouteConfig struct {
	GatewayHandler *handlers.GatewayHandler
	WebhookHandler *handlers.WebhookHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
	MinVersion     string
}

func SetupGatewayRoutes(engine *gin.Engine, cfg *GatewayRouteConfig) {
	plugin := engine.Group("")
	plugin.Use(middleware.PluginVersion(cfg.MinVersion))
	{
		plugin.GET("/auth", cfg.RateLimiter.Limit("auth"), cfg.GatewayHandler.Auth)

		protected := plugin.Group("")
		protected.Use(cfg.AuthMiddleware.RequireAuth())
		{
			protected.GET("/user-info", cfg.GatewayHandler.UserInfo)
			protected.POST("/track-usage", cfg.GatewayHandler.TrackUsage)
			protected.POST("/logout", cfg.GatewayHandler.Logout)
		}
	}

	// Server to server; signed by the provider.
	engine.POST("/webhook", cfg.RateLimiter.Limit("webhook"), cfg.WebhookHandler.Handle)
}
