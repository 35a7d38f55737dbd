package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/utils/response"
)

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}

	if locked, err := h.bruteForceProtection.CheckAccount(c, req.Email); locked {
		return err
	}

	ip := c.IP()
	result, err := h.authService.Login(c.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			// Record failed attempt even if user not found
			_ = h.bruteForceProtection.RecordFailedAttempt(c, ip, req.Email)
			return response.Unauthorized(c, "Invalid email or password")
		}
		return handlers.RespondError(c, err, "Failed to log in")
	}

	// Clear failed attempts on successful login
	_ = h.bruteForceProtection.RecordSuccessfulAttempt(c, ip, req.Email)

	return response.Success(c, toAuthResponse(result))
}
