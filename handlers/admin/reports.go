package admin

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/database"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/sahilchouksey/fee-management/utils/response"
)

// ReportsHandler serves the admin dashboard, reports and exports
type ReportsHandler struct {
	dashboardService *services.DashboardService
	exportService    *services.ExportService
	now              handlers.Clock
	location         *time.Location
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(dashboard *services.DashboardService, exports *services.ExportService, now handlers.Clock, loc *time.Location) *ReportsHandler {
	return &ReportsHandler{
		dashboardService: dashboard,
		exportService:    exports,
		now:              now,
		location:         loc,
	}
}

// ExportRequest narrows an export. Dates are calendar days, both inclusive.
type ExportRequest struct {
	StudentID    uint   `json:"student_id"`
	FeePlanID    uint   `json:"fee_plan_id"`
	Method       string `json:"method" validate:"omitempty,payment_method"`
	Status       string `json:"status"`
	Course       string `json:"course"`
	AcademicYear string `json:"academic_year"`
	From         string `json:"from"`
	To           string `json:"to"`
}

// GetDashboard handles GET /admin/dashboard
func (h *ReportsHandler) GetDashboard(c *fiber.Ctx) error {
	overview, err := h.dashboardService.Overview(c.Context(), h.now())
	if err != nil {
		return handlers.RespondError(c, err, "Failed to build dashboard")
	}
	return response.Success(c, overview)
}

// GetCollections handles GET /admin/reports/collections. academic_year takes
// a comma separated list.
func (h *ReportsHandler) GetCollections(c *fiber.Ctx) error {
	filter := database.CollectionFilter{Course: strings.TrimSpace(c.Query("course"))}
	for _, year := range strings.Split(c.Query("academic_year"), ",") {
		if year = strings.TrimSpace(year); year != "" {
			if _, err := fees.ValidateAcademicYear("academic_year", year); err != nil {
				return handlers.RespondError(c, err, "Invalid academic year")
			}
			filter.AcademicYears = append(filter.AcademicYears, year)
		}
	}

	rows, err := h.dashboardService.Collections(c.Context(), filter, h.now())
	if err != nil {
		return handlers.RespondError(c, err, "Failed to build collections report")
	}
	if rows == nil {
		rows = []database.CollectionRow{}
	}
	return response.Success(c, rows)
}

// GetMethodTotals handles GET /admin/reports/methods. The period defaults to
// the current month up to today.
func (h *ReportsHandler) GetMethodTotals(c *fiber.Ctx) error {
	today := h.now()
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	to := today

	if parsed, err := fees.ParseDate("from", c.Query("from"), h.location); err != nil {
		return handlers.RespondError(c, err, "Invalid date range")
	} else if parsed != nil {
		from = *parsed
	}
	if parsed, err := fees.ParseDate("to", c.Query("to"), h.location); err != nil {
		return handlers.RespondError(c, err, "Invalid date range")
	} else if parsed != nil {
		to = *parsed
	}
	if to.Before(from) {
		return handlers.RespondError(c, fees.NewError(fees.KindInvalidDate, "to", "End date must not be before start date"), "Invalid date range")
	}

	totals, err := h.dashboardService.MethodTotals(c.Context(), from, to)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to build payment method report")
	}
	if totals == nil {
		totals = []database.MethodTotal{}
	}
	return response.Success(c, fiber.Map{
		"from":   from.Format(fees.DateLayout),
		"to":     to.Format(fees.DateLayout),
		"totals": totals,
	})
}

func (h *ReportsHandler) paymentFilter(req ExportRequest) (services.PaymentFilter, error) {
	filter := services.PaymentFilter{StudentID: req.StudentID, Method: req.Method}
	from, err := fees.ParseDate("from", req.From, h.location)
	if err != nil {
		return filter, err
	}
	to, err := fees.ParseDate("to", req.To, h.location)
	if err != nil {
		return filter, err
	}
	if to != nil {
		next := fees.StartOfDay(to.In(h.location)).AddDate(0, 0, 1)
		to = &next
	}
	filter.From, filter.To = from, to
	return filter, nil
}

// ExportPayments handles POST /admin/reports/payments/export
func (h *ReportsHandler) ExportPayments(c *fiber.Ctx) error {
	var req ExportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	filter, err := h.paymentFilter(req)
	if err != nil {
		return handlers.RespondError(c, err, "Invalid date range")
	}

	result, err := h.exportService.ExportPayments(c.Context(), filter)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to export payments")
	}
	return response.Created(c, result)
}

// ExportAssignments handles POST /admin/reports/assignments/export
func (h *ReportsHandler) ExportAssignments(c *fiber.Ctx) error {
	var req ExportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	result, err := h.exportService.ExportAssignments(c.Context(), services.AssignmentFilter{
		StudentID:    req.StudentID,
		FeePlanID:    req.FeePlanID,
		Status:       req.Status,
		Course:       req.Course,
		AcademicYear: req.AcademicYear,
	}, h.now())
	if err != nil {
		return handlers.RespondError(c, err, "Failed to export assignments")
	}
	return response.Created(c, result)
}

// DownloadPayments handles GET /admin/reports/payments.csv. It streams the
// same CSV the export uploads, so it works without object storage.
func (h *ReportsHandler) DownloadPayments(c *fiber.Ctx) error {
	filter, err := h.paymentFilter(ExportRequest{
		StudentID: handlers.QueryID(c, "student_id"),
		Method:    c.Query("method"),
		From:      c.Query("from"),
		To:        c.Query("to"),
	})
	if err != nil {
		return handlers.RespondError(c, err, "Invalid date range")
	}

	data, _, err := h.exportService.PaymentsCSV(c.Context(), filter)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to export payments")
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="payments-`+h.now().Format("20060102")+`.csv"`)
	return c.Send(data)
}
