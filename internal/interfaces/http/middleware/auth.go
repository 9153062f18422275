package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/domain/accesstoken"
	"github.com/repolens/gatekeeper/internal/shared/constants"
	"github.com/repolens/gatekeeper/internal/shared/logger"
	"github.com/repolens/gatekeeper/internal/shared/utils"
)

// Authenticator resolves a bearer token to its subject.
type Authenticator interface {
	Execute(ctx context.Context, token string) (string, error)
}

type AuthMiddleware struct {
	authn  Authenticator
	logger logger.Interface
}

func NewAuthMiddleware(authn Authenticator, logger logger.Interface) *AuthMiddleware {
	return &AuthMiddleware{authn: authn, logger: logger}
}

// invalidTokenBody is the 401 payload; the plugin re-runs sign-in on it.
type invalidTokenBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// RequireAuth sets the subject and raw token on the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)

		subject, err := m.authn.Execute(c.Request.Context(), token)
		if err != nil {
			if reason := accesstoken.ReasonOf(err); reason != "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, invalidTokenBody{
					Error:  constants.ErrMsgInvalidToken,
					Reason: string(reason),
				})
				return
			}
			m.logger.Errorw("token validation failed", "error", err)
			utils.AbortWithError(c, err)
			return
		}

		c.Set(constants.ContextKeySubject, subject)
		c.Set(constants.ContextKeyToken, token)
		c.Next()
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader(constants.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Subject returns the subject set by RequireAuth.
func Subject(c *gin.Context) string {
	return c.GetString(constants.ContextKeySubject)
}
