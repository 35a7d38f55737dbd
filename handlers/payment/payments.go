package payment

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

// PaymentHandler records and lists payments on behalf of the office
type PaymentHandler struct {
	paymentService *services.PaymentService
	validator      *validation.Validator
	now            handlers.Clock
	location       *time.Location
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService, now handlers.Clock, loc *time.Location) *PaymentHandler {
	return &PaymentHandler{
		paymentService: payments,
		validator:      validation.NewValidator(),
		now:            now,
		location:       loc,
	}
}

// PaymentResponse is a recorded payment with the fee state after it
type PaymentResponse struct {
	Payment    *model.Payment           `json:"payment"`
	Assignment model.StudentFeeResponse `json:"assignment"`
}

// CreatePayment handles POST /payments
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var req services.PaymentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}

	opts := services.PaymentOptions{}
	if userID, ok := middleware.GetUserID(c); ok {
		opts.PayerUserID = &userID
	}

	today := h.now()
	payment, fee, err := h.paymentService.Record(c.Context(), req, opts, today)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to record payment")
	}

	payment.StudentFee = nil
	return response.Created(c, PaymentResponse{Payment: payment, Assignment: fee.ToResponse(today)})
}

// ListPayments handles GET /payments
func (h *PaymentHandler) ListPayments(c *fiber.Ctx) error {
	from, to, err := handlers.DateRange(c, h.location)
	if err != nil {
		return handlers.RespondError(c, err, "Invalid date range")
	}

	page, limit := response.PageParams(c)
	payments, total, err := h.paymentService.List(c.Context(), services.PaymentFilter{
		StudentID:    handlers.QueryID(c, "student_id"),
		StudentFeeID: handlers.QueryID(c, "student_fee_id"),
		Method:       c.Query("method"),
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

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid payment ID")
	}

	payment, err := h.paymentService.Get(c.Context(), id)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch payment")
	}
	return response.Success(c, payment)
}
