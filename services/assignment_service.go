package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AssignmentInput asks for a fee plan to be assigned to a student. DueDate is
// a calendar day ("2006-01-02") or an RFC 3339 timestamp.
type AssignmentInput struct {
	StudentID uint   `json:"student_id"`
	FeePlanID uint   `json:"fee_plan_id"`
	DueDate   string `json:"due_date"`
}

// AssignmentCheck is the outcome of a dry-run assignment
type AssignmentCheck struct {
	Valid          bool            `json:"valid"`
	MatchedCourse  string          `json:"matched_course"`
	YearChecked    bool            `json:"year_checked"`
	AcademicYear   string          `json:"academic_year"`
	AmountAssigned decimal.Decimal `json:"amount_assigned"`
	DueDate        time.Time       `json:"due_date"`
}

// AssignmentFilter narrows ListAssignments
type AssignmentFilter struct {
	StudentID    uint
	FeePlanID    uint
	Status       string
	Course       string
	AcademicYear string
	OverdueOnly  bool
	Page         int
	Limit        int
}

// AssignmentService assigns fee plans to students and maintains the
// resulting fee records
type AssignmentService struct {
	db     *gorm.DB
	events FeeEvents
}

// NewAssignmentService creates a new assignment service. events may be nil.
func NewAssignmentService(db *gorm.DB, events FeeEvents) *AssignmentService {
	return &AssignmentService{db: db, events: events}
}

// prepared is a validated assignment ready to be stored
type prepared struct {
	student *model.Student
	plan    *model.FeePlan
	match   fees.Match
}

func (s *AssignmentService) prepare(tx *gorm.DB, in AssignmentInput, today time.Time) (*prepared, error) {
	due, err := fees.ParseDate("due_date", in.DueDate, today.Location())
	if err != nil {
		return nil, err
	}

	p := &prepared{student: &model.Student{}, plan: &model.FeePlan{}}
	if in.StudentID > 0 {
		if err := withCourses(tx).First(p.student, in.StudentID).Error; err != nil {
			return nil, notFound(err, ErrStudentNotFound)
		}
	}
	if in.FeePlanID > 0 {
		if err := tx.First(p.plan, in.FeePlanID).Error; err != nil {
			return nil, notFound(err, ErrFeePlanNotFound)
		}
	}

	p.match, err = fees.ValidateAssignment(p.student.Ref(), p.plan.Ref(), due, today)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := tx.Model(&model.StudentFee{}).
		Where("student_id = ? AND fee_plan_id = ?", in.StudentID, in.FeePlanID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing assignment: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateAssignment
	}
	return p, nil
}

// Check runs every assignment rule without storing anything
func (s *AssignmentService) Check(ctx context.Context, in AssignmentInput, today time.Time) (*AssignmentCheck, error) {
	p, err := s.prepare(s.db.WithContext(ctx), in, today)
	if err != nil {
		return nil, err
	}
	return &AssignmentCheck{
		Valid:          true,
		MatchedCourse:  p.match.Course.CourseName,
		YearChecked:    p.match.YearChecked,
		AcademicYear:   p.plan.AcademicYear,
		AmountAssigned: p.plan.Total,
		DueDate:        p.match.DueDate,
	}, nil
}

// Assign validates the request and creates the student fee record with the
// plan's components and total snapshotted
func (s *AssignmentService) Assign(ctx context.Context, in AssignmentInput, today time.Time) (*model.StudentFee, error) {
	var p *prepared
	fee := &model.StudentFee{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = s.prepare(tx, in, today)
		if err != nil {
			return err
		}

		ledger := fees.NewLedger(p.plan.Total)
		*fee = model.StudentFee{
			StudentID:         p.student.ID,
			FeePlanID:         p.plan.ID,
			Course:            p.match.Course.CourseName,
			AcademicYear:      p.plan.AcademicYear,
			ComponentSnapshot: datatypes.NewJSONType(p.plan.Components()),
			AmountAssigned:    ledger.AmountAssigned,
			AmountPaid:        ledger.AmountPaid,
			Status:            ledger.Status,
			AssignedAt:        time.Now().UTC(),
			DueDate:           p.match.DueDate.UTC(),
			Version:           1,
		}
		if err := tx.Create(fee).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateAssignment
			}
			return fmt.Errorf("failed to create assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fee.Student = p.student
	fee.FeePlan = p.plan
	if s.events != nil {
		s.events.FeeAssigned(ctx, p.student, fee)
	}
	return fee, nil
}

// Get loads an assignment with its student and plan
func (s *AssignmentService) Get(ctx context.Context, id uint) (*model.StudentFee, error) {
	var fee model.StudentFee
	if err := s.db.WithContext(ctx).Preload("Student").Preload("FeePlan").First(&fee, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to fetch assignment: %w", err)
	}
	return &fee, nil
}

// GetForStudent loads an assignment only if it belongs to studentID
func (s *AssignmentService) GetForStudent(ctx context.Context, id, studentID uint) (*model.StudentFee, error) {
	fee, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if fee.StudentID != studentID {
		return nil, ErrAssignmentNotFound
	}
	return fee, nil
}

// List returns one page of assignments matching filter, earliest due first
func (s *AssignmentService) List(ctx context.Context, filter AssignmentFilter, today time.Time) ([]model.StudentFee, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.StudentFee{})

	if filter.StudentID > 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.FeePlanID > 0 {
		query = query.Where("fee_plan_id = ?", filter.FeePlanID)
	}
	if status := strings.ToUpper(strings.TrimSpace(filter.Status)); status != "" {
		query = query.Where("status = ?", status)
	}
	if course := strings.TrimSpace(filter.Course); course != "" {
		query = query.Where("LOWER(course) = ?", strings.ToLower(course))
	}
	if year := strings.TrimSpace(filter.AcademicYear); year != "" {
		query = query.Where("academic_year = ?", year)
	}
	if filter.OverdueOnly {
		query = query.Where("status <> ? AND due_date < ?", fees.StatusPaid, fees.StartOfDay(today).UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assignments: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var list []model.StudentFee
	if err := query.Preload("Student").
		Order("due_date ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch assignments: %w", err)
	}
	return list, total, nil
}

// ForStudent returns every assignment of a student, earliest due first
func (s *AssignmentService) ForStudent(ctx context.Context, studentID uint) ([]model.StudentFee, error) {
	var list []model.StudentFee
	if err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("due_date ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch student assignments: %w", err)
	}
	return list, nil
}

// StudentSummary totals a student's assignments
func (s *AssignmentService) StudentSummary(ctx context.Context, studentID uint, today time.Time) (fees.Summary, []model.StudentFee, error) {
	list, err := s.ForStudent(ctx, studentID)
	if err != nil {
		return fees.Summary{}, nil, err
	}
	items := make([]fees.SummaryItem, len(list))
	for i := range list {
		items[i] = fees.SummaryItem{Ledger: list[i].Ledger(), DueDate: list[i].DueDate}
	}
	return fees.Summarize(items, today), list, nil
}

// UpdateDueDate moves an assignment's due date. The new date follows the
// same no-past-dates rule as a new assignment.
func (s *AssignmentService) UpdateDueDate(ctx context.Context, id uint, dueDate string, today time.Time) (*model.StudentFee, error) {
	due, err := fees.ParseDate("due_date", dueDate, today.Location())
	if err != nil {
		return nil, err
	}
	if due == nil {
		return nil, fees.NewError(fees.KindMissingField, "due_date", "Due date is required")
	}
	if err := fees.CheckDueDate(*due, today); err != nil {
		return nil, err
	}
	day := fees.StartOfDay(due.In(today.Location())).UTC()

	result := s.db.WithContext(ctx).Model(&model.StudentFee{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"due_date": day, "last_reminder_at": nil})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update due date: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrAssignmentNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes an assignment that has no payments. Payments are never
// deleted, so a fee with payments is kept.
func (s *AssignmentService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fee model.StudentFee
		if err := tx.First(&fee, id).Error; err != nil {
			return notFound(err, ErrAssignmentNotFound)
		}

		var count int64
		if err := tx.Model(&model.Payment{}).Where("student_fee_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count payments: %w", err)
		}
		if count > 0 || fee.AmountPaid.IsPositive() {
			return ErrAssignmentHasPayments
		}

		if err := tx.Where("student_fee_id = ?", id).Delete(&model.CheckoutSession{}).Error; err != nil {
			return fmt.Errorf("failed to delete checkout sessions: %w", err)
		}
		if err := tx.Delete(&fee).Error; err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}
		return nil
	})
}
