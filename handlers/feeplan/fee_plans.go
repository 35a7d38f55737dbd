package feeplan

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/sahilchouksey/fee-management/utils/response"
	"github.com/sahilchouksey/fee-management/utils/validation"
)

// FeePlanHandler handles fee plan administration
type FeePlanHandler struct {
	feePlanService *services.FeePlanService
	validator      *validation.Validator
}

// NewFeePlanHandler creates a new fee plan handler
func NewFeePlanHandler(feePlans *services.FeePlanService) *FeePlanHandler {
	return &FeePlanHandler{
		feePlanService: feePlans,
		validator:      validation.NewValidator(),
	}
}

// ListFeePlans handles GET /fee-plans
func (h *FeePlanHandler) ListFeePlans(c *fiber.Ctx) error {
	plans, err := h.feePlanService.List(c.Context(), services.FeePlanFilter{
		Course:       c.Query("course"),
		AcademicYear: c.Query("academic_year"),
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch fee plans")
	}
	if plans == nil {
		plans = []model.FeePlan{}
	}
	return response.Success(c, plans)
}

// GetFeePlan handles GET /fee-plans/:id
func (h *FeePlanHandler) GetFeePlan(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid fee plan ID")
	}

	plan, err := h.feePlanService.Get(c.Context(), id)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch fee plan")
	}
	return response.Success(c, plan)
}

// CreateFeePlan handles POST /fee-plans
func (h *FeePlanHandler) CreateFeePlan(c *fiber.Ctx) error {
	var req services.FeePlanInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}

	plan, err := h.feePlanService.Create(c.Context(), req)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to create fee plan")
	}
	return response.Created(c, plan)
}

// UpdateFeePlan handles PUT /fee-plans/:id. Fees already assigned keep the
// components they were assigned with.
func (h *FeePlanHandler) UpdateFeePlan(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid fee plan ID")
	}

	var req services.FeePlanInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}

	plan, err := h.feePlanService.Update(c.Context(), id, req)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update fee plan")
	}
	return response.SuccessWithMessage(c, "Fee plan updated successfully", plan)
}

// DeleteFeePlan handles DELETE /fee-plans/:id
func (h *FeePlanHandler) DeleteFeePlan(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid fee plan ID")
	}

	if err := h.feePlanService.Delete(c.Context(), id); err != nil {
		return handlers.RespondError(c, err, "Failed to delete fee plan")
	}
	return response.SuccessWithMessage(c, "Fee plan deleted successfully", nil)
}

// PreviewTotal handles POST /fee-plans/preview. Invalid components are
// reported alongside the total of the valid ones; it never fails with 422.
func (h *FeePlanHandler) PreviewTotal(c *fiber.Ctx) error {
	var req fees.ComponentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	return response.Success(c, h.feePlanService.Preview(req))
}
