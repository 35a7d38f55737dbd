package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/utils/middleware"
	"github.com/sahilchouksey/fee-management/utils/response"
)

// GetProfile retrieves the current user's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	user, err := h.authService.Profile(c.Context(), userID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to load profile")
	}

	return response.Success(c, toUserResponse(user))
}
