package model

import (
	"time"

	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/shopspring/decimal"
)

// Payment is an amount received against a student fee. Payments are never
// edited or deleted once recorded.
type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	StudentFeeID    uint            `gorm:"not null;index" json:"student_fee_id"`
	StudentID       uint            `gorm:"not null;index" json:"student_id"`
	PayerUserID     *uint           `gorm:"index" json:"payer_user_id,omitempty"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Method          fees.Method     `gorm:"type:varchar(20);not null;index" json:"method"`
	PaidAt          time.Time       `gorm:"not null;index" json:"paid_at"`
	ReferenceNo     string          `gorm:"type:varchar(50)" json:"reference_no,omitempty"`
	Notes           string          `gorm:"type:varchar(500)" json:"notes,omitempty"`
	CheckoutOrderID *string         `gorm:"type:varchar(64);uniqueIndex" json:"checkout_order_id,omitempty"` // Set for gateway payments

	// Relationships
	StudentFee *StudentFee `gorm:"foreignKey:StudentFeeID;constraint:OnDelete:RESTRICT" json:"student_fee,omitempty"`
	Student    *Student    `gorm:"foreignKey:StudentID;constraint:OnDelete:RESTRICT" json:"-"`
	PayerUser  *User       `gorm:"foreignKey:PayerUserID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}
