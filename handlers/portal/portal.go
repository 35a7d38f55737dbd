package portal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/utils/middleware"
	"github.com/sahilchouksey/fee-management/utils/response"
	"github.com/sahilchouksey/fee-management/utils/validation"
)

// PortalHandler serves the signed-in student's own fees
type PortalHandler struct {
	assignmentService *services.AssignmentService
	paymentService    *services.PaymentService
	checkoutService   *services.CheckoutService
	validator         *validation.Validator
	now               handlers.Clock
	location          *time.Location
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(assignments *services.AssignmentService, payments *services.PaymentService, checkouts *services.CheckoutService, now handlers.Clock, loc *time.Location) *PortalHandler {
	return &PortalHandler{
		assignmentService: assignments,
		paymentService:    payments,
		checkoutService:   checkouts,
		validator:         validation.NewValidator(),
		now:               now,
		location:          loc,
	}
}

// GetFees handles GET /me/fees
func (h *PortalHandler) GetFees(c *fiber.Ctx) error {
	student, ok := middleware.GetStudent(c)
	if !ok {
		return response.Forbidden(c, "No student record is linked to this account")
	}

	today := h.now()
	summary, list, err := h.assignmentService.StudentSummary(c.Context(), student.ID, today)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch fees")
	}

	return response.Success(c, fiber.Map{
		"student_id":  student.ID,
		"name":        student.FullName(),
		"summary":     summary,
		"assignments": model.StudentFeeResponses(list, today),
	})
}

// GetFee handles GET /me/fees/:id
func (h *PortalHandler) GetFee(c *fiber.Ctx) error {
	student, ok := middleware.GetStudent(c)
	if !ok {
		return response.Forbidden(c, "No student record is linked to this account")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid fee ID")
	}

	fee, err := h.assignmentService.GetForStudent(c.Context(), id, student.ID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch fee")
	}
	return response.Success(c, fee.ToResponse(h.now()))
}

// GetPayments handles GET /me/payments
func (h *PortalHandler) GetPayments(c *fiber.Ctx) error {
	student, ok := middleware.GetStudent(c)
	if !ok {
		return response.Forbidden(c, "No student record is linked to this account")
	}
	from, to, err := handlers.DateRange(c, h.location)
	if err != nil {
		return handlers.RespondError(c, err, "Invalid date range")
	}

	page, limit := response.PageParams(c)
	payments, total, err := h.paymentService.List(c.Context(), services.PaymentFilter{
		StudentID:    student.ID,
		StudentFeeID: handlers.QueryID(c, "student_fee_id"),
		From:         from,
		To:           to,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch payments")
	}
	return response.Paginated(c, payments, response.CalculatePagination(page, limit, total))
}

// Pay handles POST /me/fees/:id/pay
func (h *PortalHandler) Pay(c *fiber.Ctx) error {
	student, ok := middleware.GetStudent(c)
	if !ok {
		return response.Forbidden(c, "No student record is linked to this account")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid fee ID")
	}

	var req services.PaymentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}
	req.StudentFeeID = id

	opts := services.PaymentOptions{StudentID: student.ID}
	if userID, ok := middleware.GetUserID(c); ok {
		opts.PayerUserID = &userID
	}

	today := h.now()
	payment, fee, err := h.paymentService.Record(c.Context(), req, opts, today)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to record payment")
	}

	payment.StudentFee = nil
	return response.Created(c, fiber.Map{
		"payment":    payment,
		"assignment": fee.ToResponse(today),
	})
}

// StartCheckout handles POST /me/fees/:id/checkout. The fee is paid only
// once the gateway confirms the transaction through the webhook.
func (h *PortalHandler) StartCheckout(c *fiber.Ctx) error {
	student, ok := middleware.GetStudent(c)
	if !ok {
		return response.Forbidden(c, "No student record is linked to this account")
	}
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid fee ID")
	}

	var req services.CheckoutInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	session, err := h.checkoutService.Start(c.Context(), user, student, id, req)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to start checkout")
	}
	return response.Created(c, session)
}

// GetCheckout handles GET /me/checkouts/:orderId
func (h *PortalHandler) GetCheckout(c *fiber.Ctx) error {
	student, ok := middleware.GetStudent(c)
	if !ok {
		return response.Forbidden(c, "No student record is linked to this account")
	}

	session, err := h.checkoutService.GetForStudent(c.Context(), c.Params("orderId"), student.ID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch checkout")
	}
	return response.Success(c, session)
}
