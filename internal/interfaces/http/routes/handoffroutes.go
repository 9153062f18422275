package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/interfaces/http/handlers"
	"github.com/repolens/gatekeeper/internal/interfaces/http/middleware"
)

type HandoffRouteConfig struct {
	HandoffHandler *handlers.HandoffHandler
	RateLimiter    *middleware.RateLimiter
}

// SetupHandoffRoutes configures the sign-in handoff between the browser and
// the plugin.
func SetupHandoffRoutes(engine *gin.Engine, cfg *HandoffRouteConfig) {
	h := engine.Group("/handoff")
	h.Use(cfg.RateLimiter.Limit("handoff"))
	{
		h.POST("", cfg.HandoffHandler.Create)
		h.GET("/:id", cfg.HandoffHandler.Wait)
		h.POST("/:id/deliver", cfg.HandoffHandler.Deliver)
		h.POST("/:id/cancel", cfg.HandoffHandler.Cancel)
	}
}
