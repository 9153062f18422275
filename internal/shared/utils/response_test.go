package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
)

func TestErrorResponseWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantDetails string
		retryAfter  bool
	}{
		{
			name:        "validation details are shown",
			err:         apperrors.NewValidationError("Validation failed", "action is required"),
			wantStatus:  http.StatusBadRequest,
			wantError:   "Validation failed",
			wantDetails: "action is required",
		},
		{
			name:       "unavailable sets retry-after",
			err:        apperrors.NewUnavailableError("Storage temporarily unavailable", "context deadline exceeded"),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "Storage temporarily unavailable",
			retryAfter: true,
		},
		{
			name:       "configuration details hidden",
			err:        apperrors.NewConfigurationError("Service misconfigured", "free plan missing"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Service misconfigured",
		},
		{
			name:       "plain error is masked",
			err:        errors.New("dial tcp 10.0.0.5:3306: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponseWithError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body.Error)
			assert.Equal(t, tt.wantDetails, body.Details)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After") != "")
		})
	}
}
