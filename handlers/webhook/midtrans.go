package webhook

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/utils/response"
)

// MidtransHandler receives payment notifications from Midtrans
type MidtransHandler struct {
	checkoutService *services.CheckoutService
	now             handlers.Clock
}

// NewMidtransHandler creates a new webhook handler
func NewMidtransHandler(checkouts *services.CheckoutService, now handlers.Clock) *MidtransHandler {
	return &MidtransHandler{checkoutService: checkouts, now: now}
}

// HandleNotification handles POST /webhooks/midtrans. Midtrans retries any
// notification that does not get a 2xx, so only failures worth retrying
// return 5xx.
func (h *MidtransHandler) HandleNotification(c *fiber.Ctx) error {
	var n services.MidtransNotification
	if err := c.BodyParser(&n); err != nil {
		return response.BadRequest(c, "Invalid notification body")
	}
	if n.OrderID == "" {
		return response.BadRequest(c, "order_id is required")
	}

	session, err := h.checkoutService.HandleNotification(c.Context(), n, h.now())
	switch {
	case err == nil:
		return response.Success(c, fiber.Map{
			"order_id": session.OrderID,
			"status":   session.Status,
		})
	case errors.Is(err, services.ErrInvalidSignature):
		log.Warnf("rejected gateway notification for %s: bad signature", n.OrderID)
		return response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrCheckoutNotFound), errors.Is(err, services.ErrCheckoutMismatch):
		log.Warnf("ignored gateway notification for %s: %v", n.OrderID, err)
		return response.SuccessWithMessage(c, "Notification ignored", fiber.Map{"order_id": n.OrderID})
	case errors.Is(err, services.ErrCheckoutNotConfigured):
		return response.ServiceUnavailable(c, err.Error())
	}

	log.Errorf("failed to apply gateway notification for %s: %v", n.OrderID, err)
	return response.InternalServerError(c, "Failed to process notification")
}
