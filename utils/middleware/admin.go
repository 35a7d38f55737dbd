package middleware

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/fee-management/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audited resources
const (
	ResourceStudents    = "students"
	ResourceFeePlans    = "fee_plans"
	ResourceStudentFees = "student_fees"
	ResourcePayments    = "payments"
	ResourceReports     = "reports"
	ResourceUsers       = "users"
)

// redactedFields are request body keys never written to the audit trail
var redactedFields = []string{"password", "new_password"}

// snapshot loads the current state of a resource row before it changes
func snapshot(db *gorm.DB, resource string, id uint) interface{} {
	var dest interface{}
	switch resource {
	case ResourceStudents:
		dest = &model.Student{}
		db = db.Preload("Courses")
	case ResourceFeePlans:
		dest = &model.FeePlan{}
	case ResourceStudentFees:
		dest = &model.StudentFee{}
	case ResourceUsers:
		dest = &model.User{}
	default:
		return nil
	}
	if err := db.First(dest, id).Error; err != nil {
		return nil
	}
	return dest
}

// createdID reads data.id, or data.payment.id for payments, from a
// successful JSON response body
func createdID(body []byte) uint {
	var envelope struct {
		Data struct {
			ID      uint `json:"id"`
			Payment *struct {
				ID uint `json:"id"`
			} `json:"payment"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0
	}
	if envelope.Data.ID == 0 && envelope.Data.Payment != nil {
		return envelope.Data.Payment.ID
	}
	return envelope.Data.ID
}

// requestValue copies a JSON request body with credentials removed
func requestValue(body []byte) interface{} {
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return json.RawMessage(append([]byte(nil), body...))
	}
	for _, key := range redactedFields {
		if _, ok := fields[key]; ok {
			fields[key] = "[REDACTED]"
		}
	}
	return fields
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// AdminAuditLog records a successful admin action against resource. It must
// run after RequireAdmin.
func AdminAuditLog(db *gorm.DB, action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, ok := GetUser(c)
		if !ok {
			return c.Next()
		}

		var resourceID uint
		if id := c.Params("id"); id != "" {
			if parsedID, err := strconv.ParseUint(id, 10, 32); err == nil {
				resourceID = uint(parsedID)
			}
		}

		var oldValue, newValue interface{}
		if resourceID > 0 && (action == model.AuditActionUpdate || action == model.AuditActionDelete) {
			oldValue = snapshot(db.WithContext(c.Context()), resource, resourceID)
		}
		newValue = requestValue(c.Body())

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil || status >= fiber.StatusBadRequest {
			return err
		}
		if resourceID == 0 && status == fiber.StatusCreated {
			resourceID = createdID(c.Response().Body())
		}

		// fiber reuses the context once the handler returns.
		entry := model.AdminAuditLog{
			AdminID:     admin.ID,
			Action:      action,
			Resource:    resource,
			ResourceID:  resourceID,
			OldValue:    toJSON(oldValue),
			NewValue:    toJSON(newValue),
			IPAddress:   c.IP(),
			UserAgent:   c.Get("User-Agent"),
			Description: c.Method() + " " + c.Path(),
		}

		go func() {
			if err := db.Create(&entry).Error; err != nil {
				log.Errorf("failed to write audit log for %s %s: %v", entry.Action, entry.Resource, err)
			}
		}()

		return nil
	}
}
