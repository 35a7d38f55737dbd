package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/sahilchouksey/fee-management/utils/auth"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sample records created by the seeder
const (
	SampleStudentEmail    = "john.doe@example.com"
	SampleStudentPassword = "Student@123"
	SampleCourse          = "Computer Science"
	SamplePlanYear        = "2024-2025"
)

// SeedOptions carries the admin credentials to create
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

// Seeder handles database seeding operations
type Seeder struct {
	db   *gorm.DB
	opts SeedOptions
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, opts SeedOptions) *Seeder {
	return &Seeder{db: db, opts: opts}
}

// SeedAll runs all seed functions. Each step is skipped when its record
// already exists, so running it twice is harmless.
func (s *Seeder) SeedAll() error {
	log.Println("Starting database seeding...")

	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedSampleStudent(); err != nil {
		return fmt.Errorf("failed to seed sample student: %w", err)
	}

	if err := s.SeedSampleFeePlan(); err != nil {
		return fmt.Errorf("failed to seed sample fee plan: %w", err)
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

func (s *Seeder) userExists(email string) (bool, error) {
	var count int64
	err := s.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// SeedAdminUser creates the default admin user
func (s *Seeder) SeedAdminUser() error {
	if s.opts.AdminEmail == "" || s.opts.AdminPassword == "" {
		log.Println("ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	exists, err := s.userExists(s.opts.AdminEmail)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("Admin user %s already exists, skipping...", s.opts.AdminEmail)
		return nil
	}

	passwordHash, err := auth.HashPassword(s.opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.User{
		Email:        s.opts.AdminEmail,
		PasswordHash: passwordHash,
		Name:         "System Admin",
		Role:         model.RoleAdmin,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("Created admin user: %s", admin.Email)
	return nil
}

// SeedSampleStudent creates John Doe, a four year Computer Science student
// with a portal login
func (s *Seeder) SeedSampleStudent() error {
	var existing model.Student
	err := s.db.Where("email = ?", SampleStudentEmail).First(&existing).Error
	if err == nil {
		log.Printf("Sample student %s already exists, skipping...", SampleStudentEmail)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	duration := 4
	courses, err := fees.NormalizeEnrollments(fees.DegreeBachelor, &duration, []fees.Enrollment{
		{CourseName: SampleCourse, StartYear: 2024, EndYear: 2028, Primary: true},
	})
	if err != nil {
		return err
	}

	passwordHash, err := auth.HashPassword(SampleStudentPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		user := &model.User{
			Email:        SampleStudentEmail,
			PasswordHash: passwordHash,
			Name:         "John Doe",
			Role:         model.RoleStudent,
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		student := &model.Student{
			UserID:              &user.ID,
			FirstName:           "John",
			LastName:            "Doe",
			Email:               SampleStudentEmail,
			DegreeType:          fees.DegreeBachelor,
			DegreeDurationYears: &duration,
		}
		student.SetEnrollments(courses)
		if err := tx.Create(student).Error; err != nil {
			return err
		}

		log.Printf("Created sample student: %s", student.Email)
		return nil
	})
}

// SeedSampleFeePlan creates the first-year Computer Science plan
func (s *Seeder) SeedSampleFeePlan() error {
	var count int64
	if err := s.db.Model(&model.FeePlan{}).
		Where("course = ? AND academic_year = ?", SampleCourse, SamplePlanYear).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Sample fee plan already exists, skipping...")
		return nil
	}

	plan := &model.FeePlan{Course: SampleCourse, AcademicYear: SamplePlanYear}
	plan.SetComponents(fees.Components{
		Tuition: decimal.NewFromInt(1000),
		Hostel:  decimal.NewFromInt(500),
		Library: decimal.NewFromInt(100),
		Lab:     decimal.NewFromInt(200),
		Sports:  decimal.NewFromInt(50),
	})
	if err := s.db.Create(plan).Error; err != nil {
		return err
	}

	log.Printf("Created sample fee plan: %s %s (total %s)", plan.Course, plan.AcademicYear, plan.Total.StringFixed(2))
	return nil
}

// RunSeeds is a convenience function to run all seeds
func RunSeeds(db *gorm.DB, opts SeedOptions) error {
	return NewSeeder(db, opts).SeedAll()
}
