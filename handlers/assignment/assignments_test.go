package assignment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/database"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code   string                 `json:"code"`
		Fields []fees.ValidationError `json:"fields"`
	} `json:"error"`
}

type fixture struct {
	app     *fiber.App
	student uint
	plan    uint
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.NewGORMStore(db).Init())

	student, err := services.NewStudentService(db).Create(t.Context(), services.StudentInput{
		FirstName:  "Asha",
		LastName:   "Verma",
		Email:      "asha@example.com",
		DegreeType: string(fees.DegreeBachelor),
		Courses:    []fees.Enrollment{{CourseName: "Computer Science", StartYear: 2023, EndYear: 2027}},
	})
	require.NoError(t, err)

	plan, err := services.NewFeePlanService(db).Create(t.Context(), services.FeePlanInput{
		Course:       "Computer Science",
		AcademicYear: "2024-2025",
		ComponentInput: fees.ComponentInput{
			Tuition: "1000",
			Hostel:  "500",
			Library: "100",
			Lab:     "200",
			Sports:  "50",
		},
	})
	require.NoError(t, err)

	today := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	h := NewAssignmentHandler(
		services.NewAssignmentService(db, nil),
		services.NewPaymentService(db, nil, nil),
		func() time.Time { return today },
	)

	app := fiber.New()
	app.Post("/assignments", h.CreateAssignment)
	app.Post("/assignments/validate", h.ValidateAssignment)
	app.Get("/assignments", h.ListAssignments)
	app.Get("/assignments/:id", h.GetAssignment)
	app.Get("/assignments/:id/payments", h.ListPayments)
	app.Delete("/assignments/:id", h.DeleteAssignment)

	return fixture{app: app, student: student.ID, plan: plan.ID}
}

func (f fixture) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestCreateAssignmentHandler(t *testing.T) {
	f := setup(t)

	t.Run("missing fields are reported together", func(t *testing.T) {
		status, env := f.do(t, http.MethodPost, "/assignments", fiber.Map{})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		require.Len(t, env.Error.Fields, 3)
		for _, field := range env.Error.Fields {
			assert.Equal(t, fees.KindMissingField, field.Kind)
		}
	})

	t.Run("past due date is rejected", func(t *testing.T) {
		status, env := f.do(t, http.MethodPost, "/assignments", fiber.Map{
			"student_id": f.student, "fee_plan_id": f.plan, "due_date": "2024-06-14",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		require.NotNil(t, env.Error)
		require.NotEmpty(t, env.Error.Fields)
		assert.Equal(t, fees.KindPastDueDate, env.Error.Fields[0].Kind)
	})

	t.Run("dry run does not store anything", func(t *testing.T) {
		status, env := f.do(t, http.MethodPost, "/assignments/validate", fiber.Map{
			"student_id": f.student, "fee_plan_id": f.plan, "due_date": "2024-07-01",
		})
		require.Equal(t, http.StatusOK, status)

		var check services.AssignmentCheck
		require.NoError(t, json.Unmarshal(env.Data, &check))
		assert.True(t, check.Valid)
		assert.Equal(t, "Computer Science", check.MatchedCourse)
		assert.True(t, check.AmountAssigned.Equal(decimal.NewFromInt(1850)))

		status, list := f.do(t, http.MethodGet, "/assignments", nil)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `[]`, string(list.Data))
	})

	var created struct {
		ID             uint            `json:"id"`
		AmountAssigned decimal.Decimal `json:"amount_assigned"`
		Balance        decimal.Decimal `json:"balance"`
		Status         fees.Status     `json:"status"`
		Course         string          `json:"course"`
	}

	t.Run("valid request creates the assignment", func(t *testing.T) {
		status, env := f.do(t, http.MethodPost, "/assignments", fiber.Map{
			"student_id": f.student, "fee_plan_id": f.plan, "due_date": "2024-06-15",
		})
		require.Equal(t, http.StatusCreated, status)
		require.NoError(t, json.Unmarshal(env.Data, &created))
		assert.NotZero(t, created.ID)
		assert.True(t, created.AmountAssigned.Equal(decimal.NewFromInt(1850)))
		assert.True(t, created.Balance.Equal(decimal.NewFromInt(1850)))
		assert.Equal(t, fees.StatusPending, created.Status)
		assert.Equal(t, "Computer Science", created.Course)
	})

	t.Run("second assignment of the same plan conflicts", func(t *testing.T) {
		status, env := f.do(t, http.MethodPost, "/assignments", fiber.Map{
			"student_id": f.student, "fee_plan_id": f.plan, "due_date": "2024-08-01",
		})
		assert.Equal(t, http.StatusConflict, status)
		assert.False(t, env.Success)
	})

	t.Run("lookup by id", func(t *testing.T) {
		status, _ := f.do(t, http.MethodGet, fmt.Sprintf("/assignments/%d", created.ID), nil)
		assert.Equal(t, http.StatusOK, status)

		status, _ = f.do(t, http.MethodGet, "/assignments/9999", nil)
		assert.Equal(t, http.StatusNotFound, status)

		status, _ = f.do(t, http.MethodGet, "/assignments/abc", nil)
		assert.Equal(t, http.StatusBadRequest, status)

		status, env := f.do(t, http.MethodGet, fmt.Sprintf("/assignments/%d/payments", created.ID), nil)
		assert.Equal(t, http.StatusOK, status)
		var payments []json.RawMessage
		require.NoError(t, json.Unmarshal(env.Data, &payments))
		assert.Empty(t, payments)
	})

	t.Run("delete without payments", func(t *testing.T) {
		status, _ := f.do(t, http.MethodDelete, fmt.Sprintf("/assignments/%d", created.ID), nil)
		assert.Equal(t, http.StatusOK, status)

		status, _ = f.do(t, http.MethodGet, fmt.Sprintf("/assignments/%d", created.ID), nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}
