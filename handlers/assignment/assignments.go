package assignment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/utils/response"
)

// AssignmentHandler handles fee plan assignments
type AssignmentHandler struct {
	assignmentService *services.AssignmentService
	paymentService    *services.PaymentService
	now               handlers.Clock
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignments *services.AssignmentService, payments *services.PaymentService, now handlers.Clock) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignments,
		paymentService:    payments,
		now:               now,
	}
}

// UpdateDueDateRequest moves an assignment's due date
type UpdateDueDateRequest struct {
	DueDate string `json:"due_date"`
}

// CreateAssignment handles POST /assignments
func (h *AssignmentHandler) CreateAssignment(c *fiber.Ctx) error {
	var req services.AssignmentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	today := h.now()
	fee, err := h.assignmentService.Assign(c.Context(), req, today)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to assign fee plan")
	}
	return response.Created(c, fee.ToResponse(today))
}

// ValidateAssignment handles POST /assignments/validate. It runs every rule
// of an assignment and reports the outcome without storing anything.
func (h *AssignmentHandler) ValidateAssignment(c *fiber.Ctx) error {
	var req services.AssignmentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	check, err := h.assignmentService.Check(c.Context(), req, h.now())
	if err != nil {
		return handlers.RespondError(c, err, "Failed to validate assignment")
	}
	return response.Success(c, check)
}

// ListAssignments handles GET /assignments
func (h *AssignmentHandler) ListAssignments(c *fiber.Ctx) error {
	page, limit := response.PageParams(c)
	today := h.now()

	list, total, err := h.assignmentService.List(c.Context(), services.AssignmentFilter{
		StudentID:    handlers.QueryID(c, "student_id"),
		FeePlanID:    handlers.QueryID(c, "fee_plan_id"),
		Status:       c.Query("status"),
		Course:       c.Query("course"),
		AcademicYear: c.Query("academic_year"),
		OverdueOnly:  c.QueryBool("overdue"),
		Page:         page,
		Limit:        limit,
	}, today)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch assignments")
	}

	return response.Paginated(c, model.StudentFeeResponses(list, today), response.CalculatePagination(page, limit, total))
}

// GetAssignment handles GET /assignments/:id
func (h *AssignmentHandler) GetAssignment(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid assignment ID")
	}

	fee, err := h.assignmentService.Get(c.Context(), id)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch assignment")
	}
	return response.Success(c, fee.ToResponse(h.now()))
}

// UpdateDueDate handles PATCH /assignments/:id/due-date
func (h *AssignmentHandler) UpdateDueDate(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid assignment ID")
	}

	var req UpdateDueDateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	today := h.now()
	fee, err := h.assignmentService.UpdateDueDate(c.Context(), id, req.DueDate, today)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update due date")
	}
	return response.SuccessWithMessage(c, "Due date updated successfully", fee.ToResponse(today))
}

// DeleteAssignment handles DELETE /assignments/:id
func (h *AssignmentHandler) DeleteAssignment(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid assignment ID")
	}

	if err := h.assignmentService.Delete(c.Context(), id); err != nil {
		return handlers.RespondError(c, err, "Failed to delete assignment")
	}
	return response.SuccessWithMessage(c, "Assignment deleted successfully", nil)
}

// ListPayments handles GET /assignments/:id/payments
func (h *AssignmentHandler) ListPayments(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid assignment ID")
	}
	if _, err := h.assignmentService.Get(c.Context(), id); err != nil {
		return handlers.RespondError(c, err, "Failed to fetch assignment")
	}

	page, limit := response.PageParams(c)
	payments, total, err := h.paymentService.List(c.Context(), services.PaymentFilter{
		StudentFeeID: id,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch payments")
	}
	return response.Paginated(c, payments, response.CalculatePagination(page, limit, total))
}
