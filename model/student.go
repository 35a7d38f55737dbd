package model

import (
	"strings"
	"time"

	"github.com/sahilchouksey/fee-management/services/fees"
)

// Student is an enrolled learner fees are assigned to
type Student struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	UserID              *uint           `gorm:"uniqueIndex" json:"user_id,omitempty"`
	FirstName           string          `gorm:"type:varchar(50);not null" json:"first_name"`
	LastName            string          `gorm:"type:varchar(50);not null" json:"last_name"`
	Email               string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	DegreeType          fees.DegreeType `gorm:"type:varchar(20);not null" json:"degree_type"`
	DegreeDurationYears *int            `json:"degree_duration_years,omitempty"`

	// Legacy single-course fields. Kept in sync with the primary enrollment
	// and read only when a record has no enrollment rows.
	Course       string `gorm:"type:varchar(100)" json:"course"`
	AcademicYear string `gorm:"type:varchar(20)" json:"academic_year"`

	// Relationships
	User    *User              `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	Courses []CourseEnrollment `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"courses"`
}

// TableName specifies the table name for Student
func (Student) TableName() string {
	return "students"
}

// FullName joins first and last name
func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// CourseSource resolves the stored course shape for the fee rules
func (s *Student) CourseSource() fees.CourseSource {
	src := fees.CourseSource{
		LegacyCourse:       s.Course,
		LegacyAcademicYear: s.AcademicYear,
	}
	for _, c := range s.Courses {
		src.Enrollments = append(src.Enrollments, c.Enrollment())
	}
	return src
}

// Ref is the view of the student used by assignment validation
func (s *Student) Ref() fees.StudentRef {
	return fees.StudentRef{ID: s.ID, Courses: s.CourseSource()}
}

// SetEnrollments replaces the course rows and mirrors the primary course
// into the legacy fields
func (s *Student) SetEnrollments(courses []fees.Enrollment) {
	s.Courses = make([]CourseEnrollment, len(courses))
	for i, c := range courses {
		s.Courses[i] = CourseEnrollment{
			StudentID:  s.ID,
			CourseName: c.CourseName,
			StartYear:  c.StartYear,
			EndYear:    c.EndYear,
			IsPrimary:  c.Primary,
			Position:   i,
		}
	}
	if primary, ok := fees.PrimaryCourse(courses); ok {
		s.Course = primary.CourseName
		s.AcademicYear = fees.AcademicYear{Start: primary.StartYear, End: primary.EndYear}.String()
	}
}

// CourseEnrollment is one course a student is enrolled in
type CourseEnrollment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	StudentID  uint      `gorm:"not null;index" json:"student_id"`
	CourseName string    `gorm:"type:varchar(100);not null" json:"course_name"`
	StartYear  int       `gorm:"not null" json:"start_year"`
	EndYear    int       `gorm:"not null" json:"end_year"`
	IsPrimary  bool      `gorm:"column:is_primary;default:false" json:"primary"`
	Position   int       `gorm:"default:0" json:"-"` // Preserves submission order
}

// TableName specifies the table name for CourseEnrollment
func (CourseEnrollment) TableName() string {
	return "course_enrollments"
}

// Enrollment converts the row to the fee-rule type
func (c CourseEnrollment) Enrollment() fees.Enrollment {
	return fees.Enrollment{
		CourseName: c.CourseName,
		StartYear:  c.StartYear,
		EndYear:    c.EndYear,
		Primary:    c.IsPrimary,
	}
}
