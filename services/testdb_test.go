package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sahilchouksey/fee-management/database"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/sahilchouksey/fee-management/utils/auth"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testZone = time.FixedZone("IST", 5*60*60+30*60)

func init() {
	auth.HashCost = bcrypt.MinCost
}

// newTestDB opens a private in-memory database with every table migrated
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

func testToday() time.Time {
	return time.Date(2024, 6, 15, 10, 30, 0, 0, testZone)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createStudent(t *testing.T, db *gorm.DB, email string, degree fees.DegreeType, courses ...fees.Enrollment) *model.Student {
	t.Helper()
	student, err := NewStudentService(db).Create(t.Context(), StudentInput{
		FirstName:  "Test",
		LastName:   "Student",
		Email:      email,
		DegreeType: string(degree),
		Courses:    courses,
	})
	require.NoError(t, err)
	return student
}

func createPlan(t *testing.T, db *gorm.DB, course, year string) *model.FeePlan {
	t.Helper()
	plan, err := NewFeePlanService(db).Create(t.Context(), FeePlanInput{
		Course:         course,
		AcademicYear:   year,
		ComponentInput: fees.ComponentInput{
			Tuition: "1000",
			Hostel:  "500",
			Library: "100",
			Lab:     "200",
			Sports:  "50",
		},
	})
	require.NoError(t, err)
	return plan
}
