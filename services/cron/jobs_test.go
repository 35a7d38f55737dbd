package cron

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sahilchouksey/fee-management/database"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var zone = time.FixedZone("IST", 5*60*60+30*60)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

type reminderFixture struct {
	db       *gorm.DB
	manager  *CronManager
	userID   uint
	upcoming *model.StudentFee
	overdue  *model.StudentFee
	later    *model.StudentFee
}

func setupReminders(t *testing.T) *reminderFixture {
	t.Helper()
	db := newTestDB(t)
	ctx := t.Context()
	today := time.Date(2024, 6, 15, 10, 0, 0, 0, zone)

	user := &model.User{Email: "jane@example.com", PasswordHash: "x", Name: "Jane", Role: model.RoleStudent}
	require.NoError(t, db.Create(user).Error)
	student, err := services.NewStudentService(db).Create(ctx, services.StudentInput{
		FirstName:  "Jane",
		LastName:   "Roe",
		Email:      "jane@example.com",
		DegreeType: string(fees.DegreeBachelor),
		Courses:    []fees.Enrollment{{CourseName: "Computer Science", StartYear: 2024, EndYear: 2028}},
	})
	require.NoError(t, err)

	plans := services.NewFeePlanService(db)
	assignments := services.NewAssignmentService(db, nil)
	assign := func(year, due string) *model.StudentFee {
		plan, err := plans.Create(ctx, services.FeePlanInput{
			Course:         "Computer Science",
			AcademicYear:   year,
			ComponentInput: fees.ComponentInput{Tuition: "1000"},
		})
		require.NoError(t, err)
		fee, err := assignments.Assign(ctx, services.AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: due}, today)
		require.NoError(t, err)
		return fee
	}

	f := &reminderFixture{db: db, userID: user.ID}
	f.upcoming = assign("2024-2025", "2024-06-17")
	f.later = assign("2025-2026", "2024-06-30")
	f.overdue = assign("2026-2027", "2024-06-16")
	pastDue := time.Date(2024, 6, 10, 0, 0, 0, 0, zone).UTC()
	require.NoError(t, db.Model(f.overdue).Update("due_date", pastDue).Error)

	f.manager = NewCronManager(db, Dependencies{
		Notifications: services.NewNotificationService(db, nil, zone),
		Location:      zone,
		ReminderDays:  3,
	})
	f.manager.now = func() time.Time { return today }
	return f
}

func TestSendFeeReminders(t *testing.T) {
	f := setupReminders(t)

	result, err := f.manager.SendFeeReminders(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Metadata["upcoming"])
	assert.Equal(t, 1, result.Metadata["overdue"])

	var notes []model.UserNotification
	require.NoError(t, f.db.Where("user_id = ?", f.userID).Order("id ASC").Find(&notes).Error)
	require.Len(t, notes, 2)
	categories := []model.NotificationCategory{notes[0].Category, notes[1].Category}
	assert.ElementsMatch(t, []model.NotificationCategory{model.NotificationCategoryFeeReminder, model.NotificationCategoryFeeOverdue}, categories)

	var later model.StudentFee
	require.NoError(t, f.db.First(&later, f.later.ID).Error)
	assert.Nil(t, later.LastReminderAt)

	// Same day again: nothing new
	result, err = f.manager.SendFeeReminders(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "No fees to remind", result.Message)

	// Next day both are reminded again
	next := time.Date(2024, 6, 16, 9, 0, 0, 0, zone)
	f.manager.now = func() time.Time { return next }
	result, err = f.manager.SendFeeReminders(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Metadata["upcoming"])
	assert.Equal(t, 1, result.Metadata["overdue"])
}

func TestSendFeeRemindersSkipsPaid(t *testing.T) {
	f := setupReminders(t)
	require.NoError(t, f.db.Model(&model.StudentFee{}).
		Where("id IN ?", []uint{f.upcoming.ID, f.overdue.ID}).
		Update("status", fees.StatusPaid).Error)

	result, err := f.manager.SendFeeReminders(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "No fees to remind", result.Message)
}

func TestRunJobRecordsLog(t *testing.T) {
	f := setupReminders(t)

	f.manager.RunJob(JobFeeReminders, f.manager.SendFeeReminders)
	f.manager.RunJob("broken", func(context.Context) (*JobResult, error) {
		return nil, assert.AnError
	})

	var logs []model.CronJobLog
	require.NoError(t, f.db.Order("id ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "completed", logs[0].Status)
	assert.Contains(t, logs[0].Message, "Reminded 1 upcoming and 1 overdue")
	assert.Contains(t, string(logs[0].Metadata), "days_ahead")
	assert.Equal(t, "failed", logs[1].Status)
	assert.Equal(t, assert.AnError.Error(), logs[1].ErrorMsg)
}

func TestJobsWithoutDependencies(t *testing.T) {
	m := NewCronManager(newTestDB(t), Dependencies{})

	result, err := m.ExpireCheckouts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Online payments are not configured", result.Message)

	result, err = m.ExportReports(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Report storage is not configured", result.Message)

	result, err = m.CleanupOldData(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Cleaned 0 old records", result.Message)
}
