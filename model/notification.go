package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType represents the type/severity of notification
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// NotificationCategory represents the category of notification
type NotificationCategory string

const (
	NotificationCategoryFeeAssigned     NotificationCategory = "fee_assigned"
	NotificationCategoryPaymentReceived NotificationCategory = "payment_received"
	NotificationCategoryFeeReminder     NotificationCategory = "fee_reminder"
	NotificationCategoryFeeOverdue      NotificationCategory = "fee_overdue"
	NotificationCategoryGeneral         NotificationCategory = "general"
)

// UserNotification represents a notification for a user
type UserNotification struct {
	ID           uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	DeletedAt    gorm.DeletedAt       `gorm:"index" json:"-"`
	UserID       uint                 `gorm:"index;not null" json:"user_id"`
	Type         NotificationType     `gorm:"type:varchar(20);not null" json:"type"`
	Category     NotificationCategory `gorm:"type:varchar(30);not null" json:"category"`
	Title        string               `gorm:"type:varchar(255);not null" json:"title"`
	Message      string               `gorm:"type:text" json:"message"`
	Read         bool                 `gorm:"default:false" json:"read"`
	StudentFeeID *uint                `gorm:"index" json:"student_fee_id,omitempty"`
	Metadata     datatypes.JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// NotificationMetadata carries the fee figures a notification refers to
type NotificationMetadata struct {
	StudentFeeID uint   `json:"student_fee_id,omitempty"`
	PaymentID    uint   `json:"payment_id,omitempty"`
	Course       string `json:"course,omitempty"`
	AcademicYear string `json:"academic_year,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Balance      string `json:"balance,omitempty"`
	Status       string `json:"status,omitempty"`
	DueDate      string `json:"due_date,omitempty"`
}

// NotificationResponse represents the API response format for a notification
type NotificationResponse struct {
	ID           uint                 `json:"id"`
	Type         NotificationType     `json:"type"`
	Category     NotificationCategory `json:"category"`
	Title        string               `json:"title"`
	Message      string               `json:"message"`
	Read         bool                 `json:"read"`
	StudentFeeID *uint                `json:"student_fee_id,omitempty"`
	Metadata     datatypes.JSON       `json:"metadata,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// ToResponse converts a UserNotification to NotificationResponse
func (n *UserNotification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:           n.ID,
		Type:         n.Type,
		Category:     n.Category,
		Title:        n.Title,
		Message:      n.Message,
		Read:         n.Read,
		StudentFeeID: n.StudentFeeID,
		Metadata:     n.Metadata,
		CreatedAt:    n.CreatedAt,
	}
}
