package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/shared/constants"
	"github.com/repolens/gatekeeper/internal/shared/errors"
)

// ErrorBody is the JSON shape of every error response. The plugin keys off
// "error"; "type" is machine readable.
type ErrorBody struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Details string `json:"details,omitempty"`
}

// ErrorResponse sends an error response with custom status code and message
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorBody{Error: message})
}

// ErrorResponseWithError maps err to a status code. Errors that are not an
// AppError are reported as a generic internal error so datastore messages
// never reach the caller.
func ErrorResponseWithError(c *gin.Context, err error) {
	appErr := errors.GetAppError(err)
	if appErr == nil {
		c.JSON(http.StatusInternalServerError, ErrorBody{
			Error: constants.ErrMsgInternalServerError,
			Type:  string(errors.ErrorTypeInternal),
		})
		return
	}

	if appErr.Type == errors.ErrorTypeUnavailable {
		c.Header("Retry-After", "1")
	}

	body := ErrorBody{
		Error: appErr.Message,
		Type:  string(appErr.Type),
	}
	// Internal and configuration details are for logs only.
	if appErr.Code < http.StatusInternalServerError {
		body.Details = appErr.Details
	}
	c.JSON(appErr.Code, body)
}

// AbortWithError is ErrorResponseWithError for middleware.
func AbortWithError(c *gin.Context, err error) {
	ErrorResponseWithError(c, err)
	c.Abort()
}
