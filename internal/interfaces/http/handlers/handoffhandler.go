package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/application/handoff"
	"github.com/repolens/gatekeeper/internal/domain/accesstoken"
	"github.com/repolens/gatekeeper/internal/shared/logger"
	"github.com/repolens/gatekeeper/internal/shared/utils"
)

type HandoffHandler struct {
	broker *handoff.Broker
	logger logger.Interface
}

func NewHandoffHandler(broker *handoff.Broker, logger logger.Interface) *HandoffHandler {
	return &HandoffHandler{broker: broker, logger: logger}
}

type DeliverRequest struct {
	Token string `json:"token" validate:"required"`
}

type handoffCreatedResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type handoffStatusResponse struct {
	Status string `json:"status"`
	Token  string `json:"token,omitempty"`
}

func (h *HandoffHandler) Create(c *gin.Context) {
	hid, expiresAt, err := h.broker.Create(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to create handoff", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handoffCreatedResponse{ID: hid, ExpiresAt: expiresAt})
}

// Wait long-polls until the handoff resolves.
func (h *HandoffHandler) Wait(c *gin.Context) {
	result, err := h.broker.Wait(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, handoff.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Handoff not found")
		return
	case err != nil:
		// The poller disconnected; nobody reads this response.
		c.Status(http.StatusRequestTimeout)
		return
	}

	body := handoffStatusResponse{Status: string(result.Status), Token: result.Token}
	switch result.Status {
	case handoff.StatusDelivered:
		c.JSON(http.StatusOK, body)
	case handoff.StatusCanceled:
		c.JSON(http.StatusGone, body)
	default:
		c.JSON(http.StatusRequestTimeout, body)
	}
}

func (h *HandoffHandler) Deliver(c *gin.Context) {
	var req DeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	err := h.broker.Deliver(c.Request.Context(), c.Param("id"), c.GetHeader("Origin"), req.Token)
	if err != nil {
		h.settleError(c, err)
		return
	}
	c.JSON(http.StatusOK, handoffStatusResponse{Status: string(handoff.StatusDelivered)})
}

func (h *HandoffHandler) Cancel(c *gin.Context) {
	if err := h.broker.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		h.settleError(c, err)
		return
	}
	c.JSON(http.StatusOK, handoffStatusResponse{Status: string(handoff.StatusCanceled)})
}

func (h *HandoffHandler) settleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, handoff.ErrUntrustedOrigin), accesstoken.ReasonOf(err) != "":
		utils.ErrorResponse(c, http.StatusForbidden, "Handoff delivery rejected")
	case errors.Is(err, handoff.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Handoff not found")
	case errors.Is(err, handoff.ErrResolved):
		utils.ErrorResponse(c, http.StatusConflict, "Handoff already resolved")
	default:
		h.logger.Errorw("handoff settle failed", "error", err, "handoff_id", c.Param("id"))
		utils.ErrorResponseWithError(c, err)
	}
}
