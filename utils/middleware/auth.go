package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/utils/auth"
	"github.com/sahilchouksey/fee-management/utils/response"
	"gorm.io/gorm"
)

var (
	errMissingToken = errors.New("missing authorization token")
	errBadFormat    = errors.New("invalid authorization format")
	errTokenType    = errors.New("invalid token type")
	errRevoked      = errors.New("token has been revoked")
	errUserNotFound = errors.New("user not found")
	errInvalidated  = errors.New("token has been invalidated")
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: auth.NewBlacklistService(db),
		db:               db,
	}
}

// authenticate resolves the bearer token on c to its claims and user
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil, errMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return nil, nil, errBadFormat
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, nil, err
	}
	if claims.TokenType != auth.TokenTypeAccess {
		return nil, nil, errTokenType
	}

	revoked, err := m.blacklistService.IsTokenRevoked(c.Context(), claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, errRevoked
	}

	var user model.User
	if err := m.db.WithContext(c.Context()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errUserNotFound
		}
		return nil, nil, err
	}

	// Bumping token_version logs the user out everywhere.
	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, errInvalidated
	}

	return claims, &user, nil
}

func (m *AuthMiddleware) reject(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return response.Unauthorized(c, "Token has expired")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims):
		return response.Unauthorized(c, "Invalid token")
	case errors.Is(err, errMissingToken):
		return response.Unauthorized(c, "Missing authorization token")
	case errors.Is(err, errBadFormat):
		return response.Unauthorized(c, "Invalid authorization format")
	case errors.Is(err, errTokenType):
		return response.Unauthorized(c, "Invalid token type")
	case errors.Is(err, errRevoked):
		return response.Unauthorized(c, "Token has been revoked")
	case errors.Is(err, errUserNotFound):
		return response.Unauthorized(c, "User not found")
	case errors.Is(err, errInvalidated):
		return response.Unauthorized(c, "Token has been invalidated")
	default:
		return response.InternalServerError(c, "Failed to check token status")
	}
}

func storeIdentity(c *fiber.Ctx, claims *auth.Claims, user *model.User) {
	c.Locals("user_id", claims.UserID)
	c.Locals("claims", claims)
	c.Locals("user", user)
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			return m.reject(c, err)
		}
		storeIdentity(c, claims, user)
		return c.Next()
	}
}

// RequireAdmin authenticates the request and requires the admin role
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			return m.reject(c, err)
		}
		if !user.IsAdmin() {
			return response.Forbidden(c, "Admin access required")
		}
		storeIdentity(c, claims, user)
		return c.Next()
	}
}

// RequireStudent authenticates the request and requires a user linked to a
// student record. The linked student is stored under "student".
func (m *AuthMiddleware) RequireStudent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			return m.reject(c, err)
		}
		if user.Role != model.RoleStudent {
			return response.Forbidden(c, "Student access required")
		}

		var student model.Student
		if err := m.db.WithContext(c.Context()).Where("user_id = ?", user.ID).First(&student).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.Forbidden(c, "No student record is linked to this account")
			}
			return response.InternalServerError(c, "Failed to load student")
		}

		storeIdentity(c, claims, user)
		c.Locals("student", &student)
		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals("user").(*model.User)
	return u, ok
}

// GetStudent returns the student record linked to the logged-in user
func GetStudent(c *fiber.Ctx) (*model.Student, bool) {
	s, ok := c.Locals("student").(*model.Student)
	return s, ok
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok
}
