package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services"
	authutil "github.com/sahilchouksey/fee-management/utils/auth"
	"github.com/sahilchouksey/fee-management/utils/middleware"
	"github.com/sahilchouksey/fee-management/utils/response"
	"github.com/sahilchouksey/fee-management/utils/validation"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService          *services.AuthService
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
}

// NewAuthHandler creates a new auth handler. bruteForceProtection may be nil.
func NewAuthHandler(authService *services.AuthService, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		bruteForceProtection: bruteForceProtection,
		validator:            validation.NewValidator(),
	}
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	StudentID   *uint      `json:"student_id,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	User          UserResponse         `json:"user"`
	Tokens        *authutil.TokenPair `json:"tokens"`
	StudentLinked bool                 `json:"student_linked,omitempty"`
}

func toUserResponse(user *model.User) UserResponse {
	res := UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
	if user.Student != nil {
		res.StudentID = &user.Student.ID
	}
	return res
}

func toAuthResponse(result *services.AuthResult) AuthResponse {
	return AuthResponse{
		User:          toUserResponse(result.User),
		Tokens:        result.Tokens,
		StudentLinked: result.StudentLinked,
	}
}

// Register handles student self-registration. The account is linked to the
// student record with the same email when one exists.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}
	if weak, err := handlers.WeakPassword(c, "password", req.Password); weak {
		return err
	}

	result, err := h.authService.Register(c.Context(), req)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to create user")
	}

	return response.Created(c, toAuthResponse(result))
}
