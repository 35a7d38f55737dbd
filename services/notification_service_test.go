package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// chanMailer hands every message to a channel
type chanMailer chan EmailMessage

func (c chanMailer) Send(_ context.Context, msg EmailMessage) error {
	c <- msg
	return nil
}

func portalStudent(t *testing.T, db *gorm.DB, email string) *model.Student {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "x", Name: "Portal User", Role: model.RoleStudent}
	require.NoError(t, db.Create(user).Error)
	return createStudent(t, db, email, fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Computer Science", StartYear: 2024, EndYear: 2028})
}

func TestNotificationsFromFeeEvents(t *testing.T) {
	db := newTestDB(t)
	mailer := make(chanMailer, 4)
	notifier := NewNotificationService(db, NewEmailServiceWithMailer(mailer, "Fees", testZone), testZone)

	student := portalStudent(t, db, "portal@example.com")
	require.NotNil(t, student.UserID)
	plan := createPlan(t, db, "Computer Science", "2024-2025")

	fee, err := NewAssignmentService(db, notifier).Assign(t.Context(),
		AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(5)}, testToday())
	require.NoError(t, err)

	select {
	case msg := <-mailer:
		assert.Equal(t, "portal@example.com", msg.To)
		assert.Contains(t, msg.Subject, "Fee assigned for 2024-2025")
		assert.Contains(t, msg.HTML, "1850.00")
	case <-time.After(2 * time.Second):
		t.Fatal("fee assigned email was not sent")
	}

	_, _, err = NewPaymentService(db, nil, notifier).Record(t.Context(),
		PaymentInput{StudentFeeID: fee.ID, Amount: "1850"}, PaymentOptions{}, testToday())
	require.NoError(t, err)

	select {
	case msg := <-mailer:
		assert.Contains(t, msg.Subject, "Payment received")
		assert.Contains(t, msg.HTML, "CASH")
	case <-time.After(2 * time.Second):
		t.Fatal("payment receipt email was not sent")
	}

	list, total, err := notifier.GetNotificationsByUser(t.Context(), ListNotificationsOptions{UserID: *student.UserID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "Fee fully paid", list[0].Title)
	assert.Equal(t, model.NotificationCategoryFeeAssigned, list[1].Category)

	count, err := notifier.GetUnreadCount(t.Context(), *student.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, notifier.MarkAsRead(t.Context(), list[0].ID, *student.UserID))
	assert.ErrorIs(t, notifier.MarkAsRead(t.Context(), list[0].ID, *student.UserID+100), ErrNotificationNotFound)

	marked, err := notifier.MarkAllAsRead(t.Context(), *student.UserID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)

	_, err = notifier.GetNotificationByID(t.Context(), 999, *student.UserID)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestNotificationsSkipStudentsWithoutAccount(t *testing.T) {
	db := newTestDB(t)
	notifier := NewNotificationService(db, nil, testZone)

	student := createStudent(t, db, "offline@example.com", fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Law", StartYear: 2023, EndYear: 2028})
	plan := createPlan(t, db, "Law", "2024-2025")

	fee, err := NewAssignmentService(db, notifier).Assign(t.Context(),
		AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(5)}, testToday())
	require.NoError(t, err)
	notifier.FeeReminder(t.Context(), student, fee, true)

	var count int64
	require.NoError(t, db.Model(&model.UserNotification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmailServiceNotConfigured(t *testing.T) {
	svc := NewEmailServiceWithMailer(nil, "", nil)
	assert.False(t, svc.IsConfigured())

	err := svc.SendFeeReminder(t.Context(), &model.Student{Email: "a@example.com"}, &model.StudentFee{}, false)
	assert.ErrorIs(t, err, ErrEmailNotConfigured)
}

func TestFeeReminderEmail(t *testing.T) {
	mailer := make(chanMailer, 1)
	svc := NewEmailServiceWithMailer(mailer, "Fees", testZone)

	student := &model.Student{FirstName: "John", LastName: "Doe", Email: "john.doe@example.com"}
	fee := &model.StudentFee{
		Course:         "Computer Science",
		AcademicYear:   "2024-2025",
		AmountAssigned: dec("1850"),
		AmountPaid:     dec("850"),
		DueDate:        time.Date(2024, 6, 10, 0, 0, 0, 0, testZone).UTC(),
	}

	require.NoError(t, svc.SendFeeReminder(t.Context(), student, fee, true))
	msg := <-mailer
	assert.Equal(t, "[Fees] Fee overdue", msg.Subject)
	assert.Contains(t, msg.HTML, "Hello John Doe")
	assert.Contains(t, msg.HTML, "1000.00")
	assert.Contains(t, msg.HTML, "10 Jun 2024")
	assert.Contains(t, msg.Text, "Balance: 1000.00")
}

func TestNotificationInbox(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db, nil, testZone)

	user := &model.User{Email: "inbox@example.com", PasswordHash: "x", Name: "Inbox", Role: model.RoleStudent}
	require.NoError(t, db.Create(user).Error)

	first, err := svc.CreateNotification(t.Context(), CreateNotificationRequest{UserID: user.ID, Title: "Welcome"})
	require.NoError(t, err)
	assert.Equal(t, model.NotificationTypeInfo, first.Type)
	assert.Equal(t, model.NotificationCategoryGeneral, first.Category)

	_, err = svc.CreateNotification(t.Context(), CreateNotificationRequest{
		UserID:   user.ID,
		Type:     model.NotificationTypeWarning,
		Category: model.NotificationCategoryFeeOverdue,
		Title:    "Fee overdue",
	})
	require.NoError(t, err)

	unread, err := svc.GetUnreadCount(t.Context(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	require.NoError(t, svc.MarkAsRead(t.Context(), first.ID, user.ID))
	unread, err = svc.GetUnreadCount(t.Context(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	assert.ErrorIs(t, svc.MarkAsRead(t.Context(), first.ID, user.ID+1), ErrNotificationNotFound)

	deleted, err := svc.DeleteAllNotifications(t.Context(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	unread, err = svc.GetUnreadCount(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
