package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/infrastructure/token"
	"github.com/repolens/gatekeeper/internal/shared/constants"
	"github.com/repolens/gatekeeper/internal/shared/utils"
)

// RequireAdminKey compares X-Admin-Key with the configured key in constant
// time. An empty configured key rejects every request.
func RequireAdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !token.EqualSecrets(c.GetHeader(constants.HeaderAdminKey), key) {
			utils.ErrorResponse(c, http.StatusForbidden, "forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}
