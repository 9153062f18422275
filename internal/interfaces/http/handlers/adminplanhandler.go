package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/repolens/gatekeeper/internal/application/subscription/dto"
	"github.com/repolens/gatekeeper/internal/application/subscription/services"
	"github.com/repolens/gatekeeper/internal/domain/subscription"
	vo "github.com/repolens/gatekeeper/internal/domain/subscription/valueobjects"
	apperrors "github.com/repolens/gatekeeper/internal/shared/errors"
	"github.com/repolens/gatekeeper/internal/shared/logger"
	"github.com/repolens/gatekeeper/internal/shared/utils"
)

// AdminPlanHandler edits the plan catalogue. Limit changes reach existing
// subscribers at their next billing sync.
type AdminPlanHandler struct {
	registry *services.PlanRegistry
	logger   logger.Interface
}

func NewAdminPlanHandler(registry *services.PlanRegistry, logger logger.Interface) *AdminPlanHandler {
	return &AdminPlanHandler{registry: registry, logger: logger}
}

type UpdatePlanRequest struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=100"`
	PeriodType    *string  `json:"periodType" validate:"omitempty,oneof=one_time daily"`
	Limit         *int     `json:"limit" validate:"omitempty,gte=-1"`
	BatchCeiling  *int     `json:"batchCeiling" validate:"omitempty,gte=0"`
	Features      []string `json:"features" validate:"omitempty,dive,identifier"`
	Active        *bool    `json:"active"`
	SortOrder     *int     `json:"sortOrder"`
	StripePriceID *string  `json:"stripePriceId" validate:"omitempty,max=191"`
}

func (h *AdminPlanHandler) ListPlans(c *gin.Context) {
	plans, err := h.registry.ListPlans(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": dto.ToPlanDTOs(plans)})
}

func (h *AdminPlanHandler) UpdatePlan(c *gin.Context) {
	slug := c.Param("slug")

	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := services.UpdatePlanCommand{
		Slug:          slug,
		Name:          req.Name,
		Features:      req.Features,
		Active:        req.Active,
		SortOrder:     req.SortOrder,
		StripePriceID: req.StripePriceID,
	}
	if req.PeriodType != nil || req.Limit != nil || req.BatchCeiling != nil {
		current, err := h.registry.GetPlan(c.Request.Context(), slug)
		if err != nil {
			h.planError(c, err)
			return
		}
		q := current.Quota()
		if req.PeriodType != nil {
			q.PeriodType = vo.PeriodType(*req.PeriodType)
		}
		if req.Limit != nil {
			q.Limit = *req.Limit
		}
		if req.BatchCeiling != nil {
			q.BatchCeiling = *req.BatchCeiling
		}
		cmd.Quota = &q
	}

	plan, err := h.registry.UpdatePlan(c.Request.Context(), cmd)
	if err != nil {
		h.planError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPlanDTO(plan))
}

func (h *AdminPlanHandler) planError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, subscription.ErrPlanNotFound):
		utils.ErrorResponseWithError(c, apperrors.NewNotFoundError("Plan not found"))
	case errors.Is(err, subscription.ErrInvalidPlan), errors.Is(err, vo.ErrInvalidQuota):
		utils.ErrorResponseWithError(c, apperrors.NewValidationError("Invalid plan", err.Error()))
	default:
		h.logger.Errorw("plan update failed", "error", err, "slug", c.Param("slug"))
		utils.ErrorResponseWithError(c, err)
	}
}
