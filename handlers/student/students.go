package student

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/handlers"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/sahilchouksey/fee-management/utils/response"
	"github.com/sahilchouksey/fee-management/utils/validation"
)

// StudentHandler handles student administration
type StudentHandler struct {
	studentService    *services.StudentService
	assignmentService *services.AssignmentService
	paymentService    *services.PaymentService
	validator         *validation.Validator
	now               handlers.Clock
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(students *services.StudentService, assignments *services.AssignmentService, payments *services.PaymentService, now handlers.Clock) *StudentHandler {
	return &StudentHandler{
		studentService:    students,
		assignmentService: assignments,
		paymentService:    payments,
		validator:         validation.NewValidator(),
		now:               now,
	}
}

// ListStudents handles GET /students
func (h *StudentHandler) ListStudents(c *fiber.Ctx) error {
	page, limit := response.PageParams(c)

	students, total, err := h.studentService.List(c.Context(), services.StudentFilter{
		Search:     c.Query("search"),
		DegreeType: c.Query("degree_type"),
		Course:     c.Query("course"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch students")
	}

	return response.Paginated(c, students, response.CalculatePagination(page, limit, total))
}

// GetStudent handles GET /students/:id
func (h *StudentHandler) GetStudent(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid student ID")
	}

	student, err := h.studentService.Get(c.Context(), id)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch student")
	}
	return response.Success(c, student)
}

// CreateStudent handles POST /students
func (h *StudentHandler) CreateStudent(c *fiber.Ctx) error {
	var req services.StudentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}

	student, err := h.studentService.Create(c.Context(), req)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to create student")
	}
	return response.Created(c, student)
}

// UpdateStudent handles PUT /students/:id
func (h *StudentHandler) UpdateStudent(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid student ID")
	}

	var req services.StudentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return handlers.Invalid(c, err)
	}

	student, err := h.studentService.Update(c.Context(), id, req)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update student")
	}
	return response.SuccessWithMessage(c, "Student updated successfully", student)
}

// DeleteStudent handles DELETE /students/:id
func (h *StudentHandler) DeleteStudent(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid student ID")
	}

	if err := h.studentService.Delete(c.Context(), id); err != nil {
		return handlers.RespondError(c, err, "Failed to delete student")
	}
	return response.SuccessWithMessage(c, "Student deleted successfully", nil)
}

// GetCourses handles GET /students/:id/courses
func (h *StudentHandler) GetCourses(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid student ID")
	}

	courses, err := h.studentService.Courses(c.Context(), id)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch courses")
	}
	if courses == nil {
		courses = []fees.Enrollment{}
	}
	return response.Success(c, courses)
}

// GetSummary handles GET /students/:id/summary
func (h *StudentHandler) GetSummary(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid student ID")
	}

	today := h.now()
	summary, list, err := h.assignmentService.StudentSummary(c.Context(), id, today)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to build fee summary")
	}

	return response.Success(c, fiber.Map{
		"summary":     summary,
		"assignments": model.StudentFeeResponses(list, today),
	})
}

// ListPayments handles GET /students/:id/payments
func (h *StudentHandler) ListPayments(c *fiber.Ctx) error {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid student ID")
	}
	if _, err := h.studentService.Get(c.Context(), id); err != nil {
		return handlers.RespondError(c, err, "Failed to fetch student")
	}

	page, limit := response.PageParams(c)
	payments, total, err := h.paymentService.List(c.Context(), services.PaymentFilter{
		StudentID: id,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch payments")
	}
	return response.Paginated(c, payments, response.CalculatePagination(page, limit, total))
}
