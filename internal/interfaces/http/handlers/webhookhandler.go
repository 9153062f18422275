package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	billingservices "github.com/repolens/gatekeeper/internal/application/billing/services"
	"github.com/repolens/gatekeeper/internal/shared/constants"
	"github.com/repolens/gatekeeper/internal/shared/logger"
	"github.com/repolens/gatekeeper/internal/shared/utils"
)

// maxWebhookBody matches the provider's documented payload ceiling.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	sync   *billingservices.Synchronizer
	logger logger.Interface
}

func NewWebhookHandler(sync *billingservices.Synchronizer, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{sync: sync, logger: logger}
}

// Handle verifies and applies one billing event. 400 tells the provider not
// to retry; 500 asks it to redeliver.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Unreadable request body")
		return
	}

	ev, err := h.sync.Verify(payload, c.GetHeader(constants.HeaderStripeSignature))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid signature")
		return
	}

	if err := h.sync.Process(c.Request.Context(), ev); err != nil {
		if billingservices.IsClientError(err) {
			utils.ErrorResponse(c, http.StatusBadRequest, "Malformed event")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
