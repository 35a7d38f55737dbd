package model

import (
	"time"

	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FeePlan is the fee structure for one course in one academic year
type FeePlan struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Course       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_fee_plan_course_year" json:"course"`
	AcademicYear string          `gorm:"type:varchar(9);not null;uniqueIndex:idx_fee_plan_course_year" json:"academic_year"`
	TuitionFee   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tuition"`
	HostelFee    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"hostel"`
	LibraryFee   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"library"`
	LabFee       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"lab"`
	SportsFee    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"sports"`
	Total        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total"`

	// Relationships
	Assignments []StudentFee `gorm:"foreignKey:FeePlanID;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName specifies the table name for FeePlan
func (FeePlan) TableName() string {
	return "fee_plans"
}

// Components returns the five line items
func (p *FeePlan) Components() fees.Components {
	return fees.Components{
		Tuition: p.TuitionFee,
		Hostel:  p.HostelFee,
		Library: p.LibraryFee,
		Lab:     p.LabFee,
		Sports:  p.SportsFee,
	}
}

// SetComponents stores the line items and recomputes the total
func (p *FeePlan) SetComponents(c fees.Components) {
	p.TuitionFee = c.Tuition
	p.HostelFee = c.Hostel
	p.LibraryFee = c.Library
	p.LabFee = c.Lab
	p.SportsFee = c.Sports
	p.Total = fees.ComputeTotal(c)
}

// BeforeSave keeps Total derived from the components on every write
func (p *FeePlan) BeforeSave(tx *gorm.DB) error {
	p.Total = fees.ComputeTotal(p.Components())
	return nil
}

// Ref is the view of the plan used by assignment validation
func (p *FeePlan) Ref() fees.PlanRef {
	return fees.PlanRef{ID: p.ID, Course: p.Course, AcademicYear: p.AcademicYear}
}
