package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/shared/constants"
	"github.com/repolens/gatekeeper/internal/shared/version"
)

type upgradeBody struct {
	Error      string `json:"error"`
	MinVersion string `json:"minVersion"`
}

// PluginVersion rejects plugins older than min with 426 Upgrade Required.
// An empty min disables the check.
func PluginVersion(min string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if min == "" {
			c.Next()
			return
		}
		if !version.MeetsMinimum(c.GetHeader(constants.HeaderPluginVersion), min) {
			c.AbortWithStatusJSON(http.StatusUpgradeRequired, upgradeBody{
				Error:      "Plugin update required",
				MinVersion: min,
			})
			return
		}
		c.Next()
	}
}
