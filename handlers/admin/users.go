package admin

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/database"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/utils/auth"
	"github.com/sahilchouksey/fee-management/utils/middleware"
	"github.com/sahilchouksey/fee-management/utils/response"
	"github.com/sahilchouksey/fee-management/utils/validation"
	"gorm.io/gorm"
)

var userValidator = validation.NewValidator()

// sortable columns for ListUsers
var userSortColumns = map[string]string{
	"created_at":    "created_at",
	"email":         "email",
	"name":          "name",
	"last_login_at": "last_login_at",
}

// ListUsersRequest represents the query parameters for listing users
type ListUsersRequest struct {
	Role    string `query:"role"`
	Search  string `query:"search"`
	Linked  string `query:"linked"`
	Sort    string `query:"sort"`
	SortDir string `query:"sort_dir"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name string `json:"name" validate:"omitempty,min=2,max=100"`
	Role string `json:"role" validate:"omitempty,oneof=student admin"`
}

// ResetPasswordRequest represents the request for admin password reset
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func gormDB(store database.Storage) (*gorm.DB, bool) {
	db, ok := store.GetDB().(*gorm.DB)
	return db, ok
}

// ListUsers retrieves login accounts with pagination and filters
// GET /admin/users
func ListUsers(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	var req ListUsersRequest
	if err := c.QueryParser(&req); err != nil {
		return response.BadRequest(c, "Invalid query parameters")
	}
	page, limit := response.PageParams(c)

	column, ok := userSortColumns[req.Sort]
	if !ok {
		column = "created_at"
	}
	if req.SortDir != "asc" {
		req.SortDir = "desc"
	}

	query := db.WithContext(c.Context()).Model(&model.User{})
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.Search != "" {
		term := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}
	switch req.Linked {
	case "true":
		query = query.Where("id IN (?)", db.Model(&model.Student{}).Select("user_id").Where("user_id IS NOT NULL"))
	case "false":
		query = query.Where("id NOT IN (?)", db.Model(&model.Student{}).Select("user_id").Where("user_id IS NOT NULL"))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count users")
	}

	var users []model.User
	if err := query.Preload("Student").
		Offset((page - 1) * limit).
		Limit(limit).
		Order(column + " " + req.SortDir).
		Find(&users).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch users")
	}

	return response.Paginated(c, users, response.CalculatePagination(page, limit, total))
}

// GetUser retrieves one account with its linked student and payment activity
// GET /admin/users/:id
func GetUser(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}
	userID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var user model.User
	if err := db.WithContext(c.Context()).Preload("Student.Courses").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	var stats struct {
		PaymentsRecorded int64 `json:"payments_recorded"`
		CheckoutsStarted int64 `json:"checkouts_started"`
	}
	db.Model(&model.Payment{}).Where("payer_user_id = ?", userID).Count(&stats.PaymentsRecorded)
	db.Model(&model.CheckoutSession{}).Where("user_id = ?", userID).Count(&stats.CheckoutsStarted)

	return response.Success(c, fiber.Map{
		"user":  user,
		"stats": stats,
	})
}

// UpdateUser changes an account's name or role. A role change signs the
// account out everywhere.
// PUT /admin/users/:id
func UpdateUser(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}
	userID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := userValidator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}

	var user model.User
	if err := db.WithContext(c.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = strings.TrimSpace(req.Name)
	}
	if req.Role != "" && req.Role != user.Role {
		if adminID, _ := middleware.GetUserID(c); adminID == user.ID {
			return response.BadRequest(c, "Cannot change your own role")
		}
		updates["role"] = req.Role
		updates["token_version"] = user.TokenVersion + 1
	}

	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update user")
		}
	}

	db.Preload("Student").First(&user, userID)
	return response.SuccessWithMessage(c, "User updated successfully", user)
}

// DeleteUser soft deletes an account. The student record stays and is
// unlinked so that a new account can claim it.
// DELETE /admin/users/:id
func DeleteUser(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}
	userID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}
	if adminID, _ := middleware.GetUserID(c); adminID == userID {
		return response.BadRequest(c, "Cannot delete your own account")
	}

	err := db.WithContext(c.Context()).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Student{}).Where("user_id = ?", userID).Update("user_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to delete user")
	}

	return response.SuccessWithMessage(c, "User deleted successfully", fiber.Map{"user_id": userID})
}

// ResetUserPassword sets a new password and invalidates every session
// POST /admin/users/:id/reset-password
func ResetUserPassword(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}
	userID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := userValidator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}
	if weak, err := handlers.WeakPassword(c, "new_password", req.NewPassword); weak {
		return err
	}

	var user model.User
	if err := db.WithContext(c.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to hash password")
	}

	if err := db.Model(&user).Updates(map[string]interface{}{
		"password_hash": hashed,
		"token_version": user.TokenVersion + 1,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	return response.SuccessWithMessage(c, "Password reset successfully", fiber.Map{
		"user_id": userID,
		"message": "All user sessions have been invalidated",
	})
}

// GetUserStats counts accounts by role and student linkage
// GET /admin/users/stats
func GetUserStats(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}
	db = db.WithContext(c.Context())

	var stats struct {
		TotalUsers       int64 `json:"total_users"`
		AdminUsers       int64 `json:"admin_users"`
		StudentUsers     int64 `json:"student_users"`
		LinkedStudents   int64 `json:"linked_students"`
		UnlinkedStudents int64 `json:"unlinked_students"`
	}

	db.Model(&model.User{}).Count(&stats.TotalUsers)
	db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&stats.AdminUsers)
	db.Model(&model.User{}).Where("role = ?", model.RoleStudent).Count(&stats.StudentUsers)
	db.Model(&model.Student{}).Where("user_id IS NOT NULL").Count(&stats.LinkedStudents)
	db.Model(&model.Student{}).Where("user_id IS NULL").Count(&stats.UnlinkedStudents)

	return response.Success(c, stats)
}
