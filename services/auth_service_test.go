package services

import (
	"testing"
	"time"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/sahilchouksey/fee-management/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWT() *auth.JWTManager {
	return auth.NewJWTManager(auth.JWTConfig{
		Secret:        "test-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "fee-management-test",
	})
}

func TestRegisterLinksStudent(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testJWT())

	student := createStudent(t, db, "john.doe@example.com", fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Computer Science", StartYear: 2024, EndYear: 2028})

	result, err := svc.Register(t.Context(), RegisterInput{Email: " John.Doe@Example.com ", Password: "password123", Name: "John Doe"})
	require.NoError(t, err)
	assert.True(t, result.StudentLinked)
	assert.Equal(t, model.RoleStudent, result.User.Role)
	assert.Equal(t, "john.doe@example.com", result.User.Email)
	assert.NotEmpty(t, result.Tokens.AccessToken)

	var reloaded model.Student
	require.NoError(t, db.First(&reloaded, student.ID).Error)
	require.NotNil(t, reloaded.UserID)
	assert.Equal(t, result.User.ID, *reloaded.UserID)

	_, err = svc.Register(t.Context(), RegisterInput{Email: "john.doe@example.com", Password: "password123", Name: "Again"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(t.Context(), RegisterInput{Email: "short@example.com", Password: "short", Name: "Short"})
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}

func TestLoginRefreshLogout(t *testing.T) {
	db := newTestDB(t)
	jwt := testJWT()
	svc := NewAuthService(db, jwt)

	_, err := svc.Register(t.Context(), RegisterInput{Email: "user@example.com", Password: "password123", Name: "User"})
	require.NoError(t, err)

	_, err = svc.Login(t.Context(), LoginInput{Email: "user@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(t.Context(), LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := svc.Login(t.Context(), LoginInput{Email: "USER@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NotNil(t, login.User.LastLoginAt)

	refreshed, err := svc.Refresh(t.Context(), login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

	_, err = svc.Refresh(t.Context(), login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = svc.Refresh(t.Context(), login.Tokens.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	claims, err := jwt.ValidateToken(refreshed.Tokens.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(t.Context(), claims))
	revoked, err := auth.NewBlacklistService(db).IsTokenRevoked(t.Context(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, svc.LogoutEverywhere(t.Context(), login.User.ID))
	_, err = svc.Refresh(t.Context(), refreshed.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalidated)
}
