package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/interfaces/http/handlers"
	"github.com/repolens/gatekeeper/internal/interfaces/http/middleware"
)

type BillingRouteConfig struct {
	BillingHandler *handlers.BillingHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupBillingRoutes(engine *gin.Engine, cfg *BillingRouteConfig) {
	billing := engine.Group("/billing")
	billing.Use(cfg.AuthMiddleware.RequireAuth())
	{
		billing.POST("/checkout", cfg.BillingHandler.Checkout)
		billing.POST("/portal", cfg.BillingHandler.Portal)
	}
}
