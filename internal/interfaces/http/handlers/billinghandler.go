package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/application/billing/usecases"
	"github.com/repolens/gatekeeper/internal/interfaces/http/middleware"
	"github.com/repolens/gatekeeper/internal/shared/logger"
	"github.com/repolens/gatekeeper/internal/shared/utils"
)

type BillingHandler struct {
	checkoutUC *usecases.CreateCheckoutUseCase
	portalUC   *usecases.CreatePortalUseCase
	logger     logger.Interface
}

func NewBillingHandler(checkoutUC *usecases.CreateCheckoutUseCase, portalUC *usecases.CreatePortalUseCase, logger logger.Interface) *BillingHandler {
	return &BillingHandler{checkoutUC: checkoutUC, portalUC: portalUC, logger: logger}
}

type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,identifier"`
}

type sessionURLResponse struct {
	URL string `json:"url"`
}

func (h *BillingHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	url, err := h.checkoutUC.Execute(c.Request.Context(), usecases.CreateCheckoutCommand{
		Subject:  middleware.Subject(c),
		PlanSlug: req.Plan,
	})
	if err != nil {
		h.logger.Errorw("checkout failed", "error", err, "subject", middleware.Subject(c), "plan", req.Plan)
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionURLResponse{URL: url})
}

func (h *BillingHandler) Portal(c *gin.Context) {
	url, err := h.portalUC.Execute(c.Request.Context(), middleware.Subject(c))
	if err != nil {
		h.logger.Errorw("billing portal failed", "error", err, "subject", middleware.Subject(c))
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionURLResponse{URL: url})
}
