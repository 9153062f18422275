package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/gatekeeper/internal/shared/constants"
)

func pluginVersionEngine(min string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/auth", PluginVersion(min), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestPluginVersion(t *testing.T) {
	tests := []struct {
		name     string
		min      string
		header   string
		wantCode int
	}{
		{"disabled", "", "0.1.0", http.StatusOK},
		{"equal", "1.2.0", "1.2.0", http.StatusOK},
		{"newer with v prefix", "1.2.0", "v1.3.0", http.StatusOK},
		{"older", "1.2.0", "1.0.0", http.StatusUpgradeRequired},
		{"missing header", "1.2.0", "", http.StatusUpgradeRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth", nil)
			if tt.header != "" {
				req.Header.Set(constants.HeaderPluginVersion, tt.header)
			}
			w := httptest.NewRecorder()
			pluginVersionEngine(tt.min).ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

// The 426 body echoes the configured minimum as written.
func TestPluginVersion_EchoesConfiguredMinimum(t *testing.T) {
	for _, min := range []string{"1.2.0", "v1.2.0"} {
		req := httptest.NewRequest(http.MethodGet, "/auth", nil)
		req.Header.Set(constants.HeaderPluginVersion, "1.0.0")
		w := httptest.NewRecorder()
		pluginVersionEngine(min).ServeHTTP(w, req)

		require.Equal(t, http.StatusUpgradeRequired, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, min, body["minVersion"])
	}
}
