package model

import (
	"time"

	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// StudentFee assigns one fee plan to one student and tracks what was paid
// against a snapshot of the plan's total
type StudentFee struct {
	ID                uint                                `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time                           `json:"created_at"`
	UpdatedAt         time.Time                           `json:"updated_at"`
	StudentID         uint                                `gorm:"not null;uniqueIndex:idx_student_fee_plan" json:"student_id"`
	FeePlanID         uint                                `gorm:"not null;uniqueIndex:idx_student_fee_plan;index" json:"fee_plan_id"`
	Course            string                              `gorm:"type:varchar(100)" json:"course"` // Matched course, display only
	AcademicYear      string                              `gorm:"type:varchar(9)" json:"academic_year"`
	ComponentSnapshot datatypes.JSONType[fees.Components] `gorm:"type:jsonb" json:"components"`
	AmountAssigned    decimal.Decimal                     `gorm:"type:numeric(14,2);not null" json:"amount_assigned"`
	AmountPaid        decimal.Decimal                     `gorm:"type:numeric(14,2);not null;default:0" json:"amount_paid"`
	Status            fees.Status                         `gorm:"type:varchar(10);not null;index" json:"status"`
	AssignedAt        time.Time                           `gorm:"not null" json:"assigned_at"`
	DueDate           time.Time                           `gorm:"not null;index" json:"due_date"`
	Version           int                                 `gorm:"not null;default:1" json:"version"` // Optimistic lock for payments
	LastReminderAt    *time.Time                          `json:"last_reminder_at,omitempty"`

	// Relationships
	Student  *Student  `gorm:"foreignKey:StudentID;constraint:OnDelete:RESTRICT" json:"student,omitempty"`
	FeePlan  *FeePlan  `gorm:"foreignKey:FeePlanID;constraint:OnDelete:RESTRICT" json:"fee_plan,omitempty"`
	Payments []Payment `gorm:"foreignKey:StudentFeeID;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName specifies the table name for StudentFee
func (StudentFee) TableName() string {
	return "student_fees"
}

// Ledger returns the amounts with status derived from them
func (f *StudentFee) Ledger() fees.Ledger {
	return fees.LedgerOf(f.AmountAssigned, f.AmountPaid)
}

// Balance is the amount still owed
func (f *StudentFee) Balance() decimal.Decimal {
	return f.Ledger().Balance()
}

// StudentFeeResponse is the API shape of an assignment
type StudentFeeResponse struct {
	ID             uint            `json:"id"`
	StudentID      uint            `json:"student_id"`
	StudentName    string          `json:"student_name,omitempty"`
	FeePlanID      uint            `json:"fee_plan_id"`
	Course         string          `json:"course"`
	AcademicYear   string          `json:"academic_year"`
	Components     fees.Components `json:"components"`
	AmountAssigned decimal.Decimal `json:"amount_assigned"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	Balance        decimal.Decimal `json:"balance"`
	Status         fees.Status     `json:"status"`
	AssignedAt     time.Time       `json:"assigned_at"`
	DueDate        time.Time       `json:"due_date"`
	Overdue        bool            `json:"overdue"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToResponse converts a StudentFee to StudentFeeResponse. Status is derived
// from the amounts rather than read from the column.
func (f *StudentFee) ToResponse(today time.Time) StudentFeeResponse {
	ledger := f.Ledger()
	resp := StudentFeeResponse{
		ID:             f.ID,
		StudentID:      f.StudentID,
		FeePlanID:      f.FeePlanID,
		Course:         f.Course,
		AcademicYear:   f.AcademicYear,
		Components:     f.ComponentSnapshot.Data(),
		AmountAssigned: ledger.AmountAssigned,
		AmountPaid:     ledger.AmountPaid,
		Balance:        ledger.Balance(),
		Status:         ledger.Status,
		AssignedAt:     f.AssignedAt,
		DueDate:        f.DueDate,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
	if ledger.Status != fees.StatusPaid && fees.CheckDueDate(f.DueDate, today) != nil {
		resp.Overdue = true
	}
	if f.Student != nil {
		resp.StudentName = f.Student.FullName()
	}
	return resp
}

// StudentFeeResponses converts a list of fees for the API
func StudentFeeResponses(list []StudentFee, today time.Time) []StudentFeeResponse {
	out := make([]StudentFeeResponse, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToResponse(today))
	}
	return out
}
