package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/utils/middleware"
	"github.com/sahilchouksey/fee-management/utils/response"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken exchanges a refresh token for a new pair. The old refresh
// token is revoked.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}

	result, err := h.authService.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to refresh token")
	}

	return response.Success(c, toAuthResponse(result))
}

// Logout handles user logout by blacklisting the access token
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	if c.Query("all") == "true" {
		if err := h.authService.LogoutEverywhere(c.Context(), claims.UserID); err != nil {
			return handlers.RespondError(c, err, "Failed to logout")
		}
	} else if err := h.authService.Logout(c.Context(), claims); err != nil {
		return handlers.RespondError(c, err, "Failed to logout")
	}

	return response.SuccessWithMessage(c, "Successfully logged out", nil)
}
