package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/sahilchouksey/fee-management/utils/validation"
	"gorm.io/gorm"
)

// StudentInput is the admin form for creating or updating a student. Either
// Courses or the legacy Course/AcademicYear pair describes the enrollment.
type StudentInput struct {
	FirstName           string            `json:"first_name" validate:"required,min=2,max=50"`
	LastName            string            `json:"last_name" validate:"required,min=2,max=50"`
	Email               string            `json:"email" validate:"required,email,max=100"`
	DegreeType          string            `json:"degree_type" validate:"required"`
	DegreeDurationYears *int              `json:"degree_duration_years" validate:"omitempty,gte=1,lte=10"`
	Courses             []fees.Enrollment `json:"courses"`
	Course              string            `json:"course" validate:"max=100"`
	AcademicYear        string            `json:"academic_year"`
}

// StudentFilter narrows ListStudents
type StudentFilter struct {
	Search     string
	DegreeType string
	Course     string
	Page       int
	Limit      int
}

// StudentService manages student records and their course enrollments
type StudentService struct {
	db *gorm.DB
}

// NewStudentService creates a new student service
func NewStudentService(db *gorm.DB) *StudentService {
	return &StudentService{db: db}
}

func withCourses(db *gorm.DB) *gorm.DB {
	return db.Preload("Courses", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// normalize applies the enrollment rules to in and returns the cleaned
// degree type and course list
func (in *StudentInput) normalize() (fees.DegreeType, []fees.Enrollment, error) {
	in.FirstName = validation.SanitizeString(in.FirstName)
	in.LastName = validation.SanitizeString(in.LastName)
	in.Email = validation.NormalizeEmail(in.Email)

	degree, _ := fees.ParseDegreeType(in.DegreeType)

	courses := in.Courses
	if len(courses) == 0 {
		courses = fees.ExtractCourses(fees.CourseSource{
			LegacyCourse:       in.Course,
			LegacyAcademicYear: in.AcademicYear,
		})
	}

	normalized, err := fees.NormalizeEnrollments(degree, in.DegreeDurationYears, courses)
	if err != nil {
		return "", nil, err
	}
	return degree, normalized, nil
}

func (s *StudentService) emailTaken(tx *gorm.DB, email string, exceptID uint) (bool, error) {
	var count int64
	query := tx.Model(&model.Student{}).Where("LOWER(email) = ?", strings.ToLower(email))
	if exceptID > 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// Create validates and stores a new student. A portal account registered
// earlier with the same email is linked automatically.
func (s *StudentService) Create(ctx context.Context, in StudentInput) (*model.Student, error) {
	degree, courses, err := in.normalize()
	if err != nil {
		return nil, err
	}

	student := &model.Student{
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		Email:               in.Email,
		DegreeType:          degree,
		DegreeDurationYears: in.DegreeDurationYears,
	}
	student.SetEnrollments(courses)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.emailTaken(tx, student.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		var user model.User
		err = tx.Where("email = ? AND role = ?", student.Email, model.RoleStudent).First(&user).Error
		if err == nil {
			student.UserID = &user.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up portal account: %w", err)
		}

		if err := tx.Create(student).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create student: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return student, nil
}

// Update replaces a student's details and enrollments
func (s *StudentService) Update(ctx context.Context, id uint, in StudentInput) (*model.Student, error) {
	degree, courses, err := in.normalize()
	if err != nil {
		return nil, err
	}

	var student model.Student
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&student, id).Error; err != nil {
			return notFound(err, ErrStudentNotFound)
		}

		taken, err := s.emailTaken(tx, in.Email, id)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		student.FirstName = in.FirstName
		student.LastName = in.LastName
		student.Email = in.Email
		student.DegreeType = degree
		student.DegreeDurationYears = in.DegreeDurationYears
		student.SetEnrollments(courses)

		if err := tx.Where("student_id = ?", id).Delete(&model.CourseEnrollment{}).Error; err != nil {
			return fmt.Errorf("failed to replace enrollments: %w", err)
		}
		if err := tx.Omit("Courses").Save(&student).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to update student: %w", err)
		}
		if err := tx.Create(&student.Courses).Error; err != nil {
			return fmt.Errorf("failed to save enrollments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// Get loads a student with its enrollments in order
func (s *StudentService) Get(ctx context.Context, id uint) (*model.Student, error) {
	var student model.Student
	if err := withCourses(s.db.WithContext(ctx)).First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to fetch student: %w", err)
	}
	return &student, nil
}

// List returns one page of students matching filter
func (s *StudentService) List(ctx context.Context, filter StudentFilter) ([]model.Student, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Student{})

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}
	if filter.DegreeType != "" {
		if degree, ok := fees.ParseDegreeType(filter.DegreeType); ok {
			query = query.Where("degree_type = ?", degree)
		}
	}
	if course := strings.TrimSpace(filter.Course); course != "" {
		query = query.Where(
			"LOWER(course) = ? OR id IN (?)",
			strings.ToLower(course),
			s.db.Model(&model.CourseEnrollment{}).Select("student_id").Where("LOWER(course_name) = ?", strings.ToLower(course)),
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var students []model.Student
	if err := withCourses(query).
		Order("last_name ASC, first_name ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&students).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch students: %w", err)
	}
	return students, total, nil
}

// Delete removes a student with no fee assignments
func (s *StudentService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var student model.Student
		if err := tx.First(&student, id).Error; err != nil {
			return notFound(err, ErrStudentNotFound)
		}

		var count int64
		if err := tx.Model(&model.StudentFee{}).Where("student_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count assignments: %w", err)
		}
		if count > 0 {
			return ErrStudentHasAssignments
		}

		if err := tx.Where("student_id = ?", id).Delete(&model.CourseEnrollment{}).Error; err != nil {
			return fmt.Errorf("failed to delete enrollments: %w", err)
		}
		if err := tx.Delete(&student).Error; err != nil {
			return fmt.Errorf("failed to delete student: %w", err)
		}
		return nil
	})
}

// Courses returns the student's effective enrollments, falling back to the
// legacy course fields
func (s *StudentService) Courses(ctx context.Context, id uint) ([]fees.Enrollment, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fees.ExtractCourses(student.CourseSource()), nil
}

// LinkUser attaches a student-role account to the unlinked student record
// with the same email. It reports whether a record was linked.
func (s *StudentService) LinkUser(ctx context.Context, user *model.User) (bool, error) {
	if user.Role != model.RoleStudent {
		return false, nil
	}
	result := s.db.WithContext(ctx).Model(&model.Student{}).
		Where("LOWER(email) = ? AND user_id IS NULL", strings.ToLower(user.Email)).
		Update("user_id", user.ID)
	if result.Error != nil {
		return false, fmt.Errorf("failed to link student account: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
