package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FeePlanInput is the admin form for a fee plan. Components arrive as raw
// text so that malformed values are reported per field.
type FeePlanInput struct {
	Course       string `json:"course" validate:"required,max=100"`
	AcademicYear string `json:"academic_year" validate:"required,academic_year"`
	fees.ComponentInput
}

// FeePlanFilter narrows ListFeePlans
type FeePlanFilter struct {
	Course       string
	AcademicYear string
}

// FeePlanPreview is the running total shown while a plan is being edited
type FeePlanPreview struct {
	Total  decimal.Decimal  `json:"total"`
	Valid  bool             `json:"valid"`
	Errors fees.FieldErrors `json:"errors"`
}

// FeePlanService manages fee plans
type FeePlanService struct {
	db *gorm.DB
}

// NewFeePlanService creates a new fee plan service
func NewFeePlanService(db *gorm.DB) *FeePlanService {
	return &FeePlanService{db: db}
}

// parse validates the whole form at once so every bad field is reported
func (in *FeePlanInput) parse() (fees.Components, error) {
	in.Course = strings.TrimSpace(in.Course)
	in.AcademicYear = strings.TrimSpace(in.AcademicYear)

	var errs fees.FieldErrors
	if in.Course == "" {
		errs = append(errs, &fees.ValidationError{Kind: fees.KindMissingField, Field: "course", Message: "Course is required"})
	}
	if _, err := fees.ValidateAcademicYear("academic_year", in.AcademicYear); err != nil {
		errs = append(errs, fees.Errors(err)...)
	}

	components, err := fees.ParseComponents(in.ComponentInput, true)
	if err != nil {
		errs = append(errs, fees.Errors(err)...)
	}
	if len(errs) > 0 {
		return fees.Components{}, errs
	}
	return components, nil
}

func (s *FeePlanService) exists(tx *gorm.DB, course, academicYear string, exceptID uint) (bool, error) {
	var count int64
	query := tx.Model(&model.FeePlan{}).
		Where("LOWER(course) = ? AND academic_year = ?", strings.ToLower(course), academicYear)
	if exceptID > 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check fee plan: %w", err)
	}
	return count > 0, nil
}

// Create validates and stores a new fee plan. The total is always computed
// from the components.
func (s *FeePlanService) Create(ctx context.Context, in FeePlanInput) (*model.FeePlan, error) {
	components, err := in.parse()
	if err != nil {
		return nil, err
	}

	plan := &model.FeePlan{Course: in.Course, AcademicYear: in.AcademicYear}
	plan.SetComponents(components)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := s.exists(tx, plan.Course, plan.AcademicYear, 0)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateFeePlan
		}
		if err := tx.Create(plan).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateFeePlan
			}
			return fmt.Errorf("failed to create fee plan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// Update replaces a plan's course, year and components. Existing assignments
// keep the amounts they were assigned with.
func (s *FeePlanService) Update(ctx context.Context, id uint, in FeePlanInput) (*model.FeePlan, error) {
	components, err := in.parse()
	if err != nil {
		return nil, err
	}

	var plan model.FeePlan
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&plan, id).Error; err != nil {
			return notFound(err, ErrFeePlanNotFound)
		}
		dup, err := s.exists(tx, in.Course, in.AcademicYear, id)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateFeePlan
		}

		plan.Course = in.Course
		plan.AcademicYear = in.AcademicYear
		plan.SetComponents(components)
		if err := tx.Save(&plan).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateFeePlan
			}
			return fmt.Errorf("failed to update fee plan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Get loads one fee plan
func (s *FeePlanService) Get(ctx context.Context, id uint) (*model.FeePlan, error) {
	var plan model.FeePlan
	if err := s.db.WithContext(ctx).First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeePlanNotFound
		}
		return nil, fmt.Errorf("failed to fetch fee plan: %w", err)
	}
	return &plan, nil
}

// List returns fee plans, newest academic year first
func (s *FeePlanService) List(ctx context.Context, filter FeePlanFilter) ([]model.FeePlan, error) {
	query := s.db.WithContext(ctx).Model(&model.FeePlan{})
	if course := strings.TrimSpace(filter.Course); course != "" {
		query = query.Where("LOWER(course) = ?", strings.ToLower(course))
	}
	if year := strings.TrimSpace(filter.AcademicYear); year != "" {
		query = query.Where("academic_year = ?", year)
	}

	var plans []model.FeePlan
	if err := query.Order("academic_year DESC, course ASC").Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch fee plans: %w", err)
	}
	return plans, nil
}

// Delete removes a plan that has never been assigned
func (s *FeePlanService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan model.FeePlan
		if err := tx.First(&plan, id).Error; err != nil {
			return notFound(err, ErrFeePlanNotFound)
		}

		var count int64
		if err := tx.Model(&model.StudentFee{}).Where("fee_plan_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count assignments: %w", err)
		}
		if count > 0 {
			return ErrFeePlanHasAssignments
		}

		if err := tx.Delete(&plan).Error; err != nil {
			return fmt.Errorf("failed to delete fee plan: %w", err)
		}
		return nil
	})
}

// Preview computes the lenient running total with the errors a save would
// report
func (s *FeePlanService) Preview(in fees.ComponentInput) FeePlanPreview {
	total, errs := fees.PreviewTotal(in)
	if errs == nil {
		errs = fees.FieldErrors{}
	}
	return FeePlanPreview{Total: total, Valid: len(errs) == 0, Errors: errs}
}
