package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/application/gateway/usecases"
	"github.com/repolens/gatekeeper/internal/domain/usage"
	"github.com/repolens/gatekeeper/internal/interfaces/http/middleware"
	"github.com/repolens/gatekeeper/internal/shared/constants"
	"github.com/repolens/gatekeeper/internal/shared/logger"
	"github.com/repolens/gatekeeper/internal/shared/utils"
)

// GatewayHandler serves the plugin-facing endpoints.
type GatewayHandler struct {
	exchangeUC    *usecases.ExchangeSessionUseCase
	userInfoUC    *usecases.GetUserInfoUseCase
	trackUsageUC  *usecases.TrackUsageUseCase
	logoutUC      *usecases.LogoutUseCase
	sessionCookie string
	logger        logger.Interface
}

func NewGatewayHandler(
	exchangeUC *usecases.ExchangeSessionUseCase,
	userInfoUC *usecases.GetUserInfoUseCase,
	trackUsageUC *usecases.TrackUsageUseCase,
	logoutUC *usecases.LogoutUseCase,
	sessionCookie string,
	logger logger.Interface,
) *GatewayHandler {
	return &GatewayHandler{
		exchangeUC:    exchangeUC,
		userInfoUC:    userInfoUC,
		trackUsageUC:  trackUsageUC,
		logoutUC:      logoutUC,
		sessionCookie: sessionCookie,
		logger:        logger,
	}
}

type TrackUsageRequest struct {
	Action    string         `json:"action" validate:"required,identifier"`
	BatchSize int            `json:"batchSize" validate:"gte=0"`
	Metadata  map[string]any `json:"metadata"`
}

type quotaExceededBody struct {
	Error     string `json:"error"`
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
}

// Auth exchanges the upstream session for an access token. The session comes
// from the session cookie, or a bearer header when the caller has no cookies.
func (h *GatewayHandler) Auth(c *gin.Context) {
	raw, err := c.Cookie(h.sessionCookie)
	if err != nil || raw == "" {
		raw = middleware.BearerToken(c)
	}

	result, err := h.exchangeUC.Execute(c.Request.Context(), raw)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GatewayHandler) UserInfo(c *gin.Context) {
	result, err := h.userInfoUC.Execute(c.Request.Context(), middleware.Subject(c))
	if err != nil {
		h.logger.Warnw("user info failed", "error", err, "subject", middleware.Subject(c))
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GatewayHandler) TrackUsage(c *gin.Context) {
	var req TrackUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.trackUsageUC.Execute(c.Request.Context(), usecases.TrackUsageCommand{
		Subject:   middleware.Subject(c),
		Action:    req.Action,
		BatchSize: req.BatchSize,
		Metadata:  req.Metadata,
	})

	var exceeded *usage.QuotaExceededError
	if errors.As(err, &exceeded) {
		c.JSON(http.StatusTooManyRequests, quotaExceededBody{
			Error:     constants.ErrMsgUsageLimitExceeded,
			Limit:     exceeded.Decision.Limit,
			Used:      exceeded.Decision.Used,
			Remaining: exceeded.Decision.Remaining,
		})
		return
	}
	if err != nil {
		h.logger.Errorw("track usage failed", "error", err, "subject", middleware.Subject(c), "action", req.Action)
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GatewayHandler) Logout(c *gin.Context) {
	if err := h.logoutUC.Execute(c.Request.Context(), c.GetString(constants.ContextKeyToken)); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
