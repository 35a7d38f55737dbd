package admin

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/database"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/utils/response"
	"gorm.io/gorm"
)

// ListAuditLogs retrieves admin audit logs with pagination. Date filters are
// read as UTC days.
// GET /admin/audit-logs
func ListAuditLogs(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	page, limit := response.PageParams(c)
	from, to, err := handlers.DateRange(c, time.UTC)
	if err != nil {
		return handlers.RespondError(c, err, "Invalid date range")
	}

	query := db.WithContext(c.Context()).Model(&model.AdminAuditLog{}).Preload("Admin")

	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if resourceID := handlers.QueryID(c, "resource_id"); resourceID > 0 {
		query = query.Where("resource_id = ?", resourceID)
	}
	if adminID := handlers.QueryID(c, "admin_id"); adminID > 0 {
		query = query.Where("admin_id = ?", adminID)
	}
	if from != nil {
		query = query.Where("created_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("created_at < ?", to.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count audit logs")
	}

	var logs []model.AdminAuditLog
	if err := query.Offset((page - 1) * limit).Limit(limit).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch audit logs")
	}

	return response.Paginated(c, logs, response.CalculatePagination(page, limit, total))
}

// GetAuditLog retrieves a specific audit log entry
// GET /admin/audit-logs/:id
func GetAuditLog(c *fiber.Ctx, store database.Storage) error {
	db, ok := gormDB(store)
	if !ok {
		return response.InternalServerError(c, "Database connection error")
	}

	logID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid log ID")
	}

	var entry model.AdminAuditLog
	if err := db.WithContext(c.Context()).Preload("Admin").First(&entry, logID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Audit log not found")
		}
		return response.InternalServerError(c, "Failed to fetch audit log")
	}

	return response.Success(c, entry)
}
