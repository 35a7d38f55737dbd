package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/utils/auth"
	"github.com/sahilchouksey/fee-management/utils/validation"
	"gorm.io/gorm"
)

var (
	ErrTokenRevoked     = errors.New("token has been revoked")
	ErrTokenInvalidated = errors.New("token has been invalidated")
)

// RegisterInput creates a student portal account
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

// LoginInput is an email and password pair
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by register, login and refresh
type AuthResult struct {
	User          *model.User     `json:"user"`
	Tokens        *auth.TokenPair `json:"tokens"`
	StudentLinked bool            `json:"student_linked"`
}

// AuthService manages accounts and their tokens
type AuthService struct {
	db        *gorm.DB
	jwt       *auth.JWTManager
	blacklist *auth.BlacklistService
	students  *StudentService
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, jwt *auth.JWTManager) *AuthService {
	return &AuthService{
		db:        db,
		jwt:       jwt,
		blacklist: auth.NewBlacklistService(db),
		students:  NewStudentService(db),
	}
}

func identity(user *model.User) auth.Identity {
	return auth.Identity{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}
}

// Register creates a student account and links it to the student record with
// the same email, if there is one. Admin accounts are only created by seeding.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := validation.NormalizeEmail(in.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         validation.SanitizeString(in.Name),
		Role:         model.RoleStudent,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	linked, err := s.students.LinkUser(ctx, user)
	if err != nil {
		log.Printf("Failed to link user %d to a student record: %v", user.ID, err)
	}

	tokens, err := s.jwt.IssuePair(identity(user))
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &AuthResult{User: user, Tokens: tokens, StudentLinked: linked}, nil
}

// Login checks the password and issues a token pair. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", validation.NormalizeEmail(in.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := auth.VerifyPassword(user.PasswordHash, in.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		log.Printf("Failed to record login for user %d: %v", user.ID, err)
	}
	user.LastLoginAt = &now

	tokens, err := s.jwt.IssuePair(identity(&user))
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &AuthResult{User: &user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair and revokes the old one
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token status: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalidated
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrTokenInvalidated
	}

	if err := s.blacklist.RevokeToken(ctx, claims.ID, user.ID, s.jwt.ExpiryOf(claims), "token_refresh"); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	tokens, err := s.jwt.IssuePair(identity(&user))
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &AuthResult{User: &user, Tokens: tokens}, nil
}

// Logout revokes the access token the request was made with
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.blacklist.RevokeToken(ctx, claims.ID, claims.UserID, s.jwt.ExpiryOf(claims), "logout"); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// LogoutEverywhere invalidates every token issued to the user
func (s *AuthService) LogoutEverywhere(ctx context.Context, userID uint) error {
	if err := s.blacklist.RevokeAllUserTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// Profile loads a user with the linked student record, if any
func (s *AuthService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Preload("Student").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalidated
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}
