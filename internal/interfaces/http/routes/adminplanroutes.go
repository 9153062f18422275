package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/interfaces/http/handlers"
	"github.com/repolens/gatekeeper/internal/interfaces/http/middleware"
)

type AdminRouteConfig struct {
	AdminPlanHandler *handlers.AdminPlanHandler
	APIKey           string
}

// SetupAdminRoutes configures the operator endpoints behind the admin key.
func SetupAdminRoutes(engine *gin.Engine, cfg *AdminRouteConfig) {
	admin := engine.Group("/admin")
	admin.Use(middleware.RequireAdminKey(cfg.APIKey))
	{
		admin.GET("/plans", cfg.AdminPlanHandler.ListPlans)
		admin.PUT("/plans/:slug", cfg.AdminPlanHandler.UpdatePlan)
	}
}
