package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationService handles user notifications. It observes fee events and
// turns them into in-app notifications plus an email when one is configured.
type NotificationService struct {
	db       *gorm.DB
	email    *EmailService
	location *time.Location
}

// NewNotificationService creates a new notification service. email may be nil.
func NewNotificationService(db *gorm.DB, email *EmailService, loc *time.Location) *NotificationService {
	if loc == nil {
		loc = time.Local
	}
	return &NotificationService{db: db, email: email, location: loc}
}

// CreateNotificationRequest represents a request to create a notification
type CreateNotificationRequest struct {
	UserID       uint
	Type         model.NotificationType
	Category     model.NotificationCategory
	Title        string
	Message      string
	StudentFeeID *uint
	Metadata     *model.NotificationMetadata
}

// ListNotificationsOptions represents options for listing notifications
type ListNotificationsOptions struct {
	UserID     uint
	UnreadOnly bool
	Category   string
	Limit      int
	Offset     int
}

// CreateNotification creates a new notification for a user
func (s *NotificationService) CreateNotification(ctx context.Context, req CreateNotificationRequest) (*model.UserNotification, error) {
	if req.Type == "" {
		req.Type = model.NotificationTypeInfo
	}
	if req.Category == "" {
		req.Category = model.NotificationCategoryGeneral
	}
	notification := &model.UserNotification{
		UserID:       req.UserID,
		Type:         req.Type,
		Category:     req.Category,
		Title:        req.Title,
		Message:      req.Message,
		Read:         false,
		StudentFeeID: req.StudentFeeID,
	}

	if req.Metadata != nil {
		metadataJSON, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(metadataJSON)
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	log.Printf("Created notification %d for user %d: %s", notification.ID, req.UserID, req.Title)
	return notification, nil
}

// GetNotificationsByUser retrieves notifications for a user
func (s *NotificationService) GetNotificationsByUser(ctx context.Context, opts ListNotificationsOptions) ([]model.UserNotification, int64, error) {
	var notifications []model.UserNotification
	var total int64

	query := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ?", opts.UserID)

	if opts.UnreadOnly {
		query = query.Where("read = ?", false)
	}

	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	} else {
		query = query.Limit(50)
	}

	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	if err := query.Order("created_at DESC, id DESC").Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, total, nil
}

// GetNotificationByID retrieves a single notification owned by userID
func (s *NotificationService) GetNotificationByID(ctx context.Context, notificationID uint, userID uint) (*model.UserNotification, error) {
	var notification model.UserNotification

	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to fetch notification: %w", err)
	}

	return &notification, nil
}

// MarkAsRead marks a notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uint, userID uint) error {
	result := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)

	if result.Error != nil {
		return fmt.Errorf("failed to mark notification as read: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// MarkAllAsRead marks all notifications for a user as read
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)

	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteNotification deletes a notification
func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID uint, userID uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&model.UserNotification{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete notification: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// DeleteAllNotifications deletes every notification of a user
func (s *NotificationService) DeleteAllNotifications(ctx context.Context, userID uint) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.UserNotification{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// GetUnreadCount returns the count of unread notifications for a user
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64

	err := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// CleanupOldNotifications removes read notifications older than the specified duration
func (s *NotificationService) CleanupOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC()

	result := s.db.WithContext(ctx).
		Where("created_at < ? AND read = ?", cutoff, true).
		Delete(&model.UserNotification{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup old notifications: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d old notifications", result.RowsAffected)
	}

	return result.RowsAffected, nil
}

func (s *NotificationService) metadata(fee *model.StudentFee) *model.NotificationMetadata {
	ledger := fee.Ledger()
	return &model.NotificationMetadata{
		StudentFeeID: fee.ID,
		Course:       fee.Course,
		AcademicYear: fee.AcademicYear,
		Amount:       ledger.AmountAssigned.StringFixed(fees.CurrencyScale),
		Balance:      ledger.Balance().StringFixed(fees.CurrencyScale),
		Status:       string(ledger.Status),
		DueDate:      fee.DueDate.In(s.location).Format(fees.DateLayout),
	}
}

// notifyStudent stores an in-app notification when the student has a portal
// account. Students without one are skipped.
func (s *NotificationService) notifyStudent(ctx context.Context, student *model.Student, fee *model.StudentFee, req CreateNotificationRequest) {
	if student == nil || student.UserID == nil {
		return
	}
	req.UserID = *student.UserID
	feeID := fee.ID
	req.StudentFeeID = &feeID
	if _, err := s.CreateNotification(ctx, req); err != nil {
		log.Printf("Failed to notify student %d about fee %d: %v", student.ID, fee.ID, err)
	}
}

// mail sends in the background so a slow mail server never delays the
// request that triggered it
func (s *NotificationService) mail(ctx context.Context, what string, send func(context.Context) error) {
	if !s.email.IsConfigured() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := send(ctx); err != nil {
			log.Printf("Failed to send %s email: %v", what, err)
		}
	}()
}

// FeeAssigned implements FeeEvents
func (s *NotificationService) FeeAssigned(ctx context.Context, student *model.Student, fee *model.StudentFee) {
	meta := s.metadata(fee)
	s.notifyStudent(ctx, student, fee, CreateNotificationRequest{
		Type:     model.NotificationTypeInfo,
		Category: model.NotificationCategoryFeeAssigned,
		Title:    "New fee assigned",
		Message: fmt.Sprintf("A fee of %s for %s %s is due on %s.",
			meta.Amount, fee.Course, fee.AcademicYear, meta.DueDate),
		Metadata: meta,
	})
	s.mail(ctx, "fee assigned", func(ctx context.Context) error {
		return s.email.SendFeeAssigned(ctx, student, fee)
	})
}

// PaymentRecorded implements FeeEvents
func (s *NotificationService) PaymentRecorded(ctx context.Context, student *model.Student, fee *model.StudentFee, payment *model.Payment) {
	meta := s.metadata(fee)
	meta.PaymentID = payment.ID
	meta.Amount = payment.Amount.StringFixed(fees.CurrencyScale)

	title := "Payment received"
	if fee.Ledger().Status == fees.StatusPaid {
		title = "Fee fully paid"
	}
	s.notifyStudent(ctx, student, fee, CreateNotificationRequest{
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryPaymentReceived,
		Title:    title,
		Message: fmt.Sprintf("Payment of %s received for %s %s. Remaining balance: %s.",
			meta.Amount, fee.Course, fee.AcademicYear, meta.Balance),
		Metadata: meta,
	})
	s.mail(ctx, "payment receipt", func(ctx context.Context) error {
		return s.email.SendPaymentReceipt(ctx, student, fee, payment)
	})
}

// FeeReminder notifies a student about an unpaid fee that is due soon or
// overdue
func (s *NotificationService) FeeReminder(ctx context.Context, student *model.Student, fee *model.StudentFee, overdue bool) {
	meta := s.metadata(fee)
	req := CreateNotificationRequest{
		Type:     model.NotificationTypeWarning,
		Category: model.NotificationCategoryFeeReminder,
		Title:    "Fee due soon",
		Message: fmt.Sprintf("Your fee for %s %s is due on %s. Outstanding balance: %s.",
			fee.Course, fee.AcademicYear, meta.DueDate, meta.Balance),
		Metadata: meta,
	}
	if overdue {
		req.Type = model.NotificationTypeError
		req.Category = model.NotificationCategoryFeeOverdue
		req.Title = "Fee overdue"
		req.Message = fmt.Sprintf("Your fee for %s %s was due on %s. Outstanding balance: %s.",
			fee.Course, fee.AcademicYear, meta.DueDate, meta.Balance)
	}
	s.notifyStudent(ctx, student, fee, req)
	s.mail(ctx, "fee reminder", func(ctx context.Context) error {
		return s.email.SendFeeReminder(ctx, student, fee, overdue)
	})
}
