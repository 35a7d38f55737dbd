package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CheckoutStatus tracks a gateway checkout through its lifecycle
type CheckoutStatus string

const (
	CheckoutStatusPending CheckoutStatus = "pending"
	CheckoutStatusSettled CheckoutStatus = "settled"
	CheckoutStatusFailed  CheckoutStatus = "failed"
	CheckoutStatusExpired CheckoutStatus = "expired"
)

// CheckoutSession is an online payment started by a student through the
// payment gateway. The payment is recorded only when the gateway confirms it.
type CheckoutSession struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	OrderID              string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_id"`
	StudentFeeID         uint            `gorm:"not null;index" json:"student_fee_id"`
	StudentID            uint            `gorm:"not null;index" json:"student_id"`
	UserID               uint            `gorm:"not null;index" json:"user_id"`
	Amount               decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Status               CheckoutStatus  `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	SnapToken            string          `gorm:"type:varchar(100)" json:"snap_token,omitempty"`
	RedirectURL          string          `gorm:"type:text" json:"redirect_url,omitempty"`
	GatewayTransactionID string          `gorm:"type:varchar(100)" json:"gateway_transaction_id,omitempty"`
	GatewayStatus        string          `gorm:"type:varchar(30)" json:"gateway_status,omitempty"`
	PaymentID            *uint           `json:"payment_id,omitempty"`
	LastPayload          datatypes.JSON  `gorm:"type:jsonb" json:"-"`

	// Relationships
	StudentFee *StudentFee `gorm:"foreignKey:StudentFeeID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for CheckoutSession
func (CheckoutSession) TableName() string {
	return "checkout_sessions"
}
