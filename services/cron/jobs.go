package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/services/fees"
)

const (
	checkoutMaxAge     = 24 * time.Hour
	notificationMaxAge = 90 * 24 * time.Hour
	cronLogMaxAge      = 90 * 24 * time.Hour
)

// SendFeeReminders notifies students of unpaid fees that fall due within the
// reminder window or are already overdue. Each fee is reminded at most once
// per calendar day.
func (m *CronManager) SendFeeReminders(ctx context.Context) (*JobResult, error) {
	if m.deps.Notifications == nil {
		return &JobResult{Message: "Notifications are not configured"}, nil
	}

	today := fees.StartOfDay(m.today())
	windowEnd := today.AddDate(0, 0, m.deps.ReminderDays+1)

	var due []model.StudentFee
	err := m.db.WithContext(ctx).
		Preload("Student").
		Where("status <> ?", fees.StatusPaid).
		Where("due_date < ?", windowEnd.UTC()).
		Where("last_reminder_at IS NULL OR last_reminder_at < ?", today.UTC()).
		Order("due_date ASC, id ASC").
		Find(&due).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due fees: %w", err)
	}

	if len(due) == 0 {
		return &JobResult{Message: "No fees to remind"}, nil
	}

	upcoming, overdue, skipped := 0, 0, 0
	for i := range due {
		fee := &due[i]
		if fee.Student == nil {
			skipped++
			continue
		}

		isOverdue := fee.DueDate.Before(today)
		m.deps.Notifications.FeeReminder(ctx, fee.Student, fee, isOverdue)

		if err := m.db.WithContext(ctx).Model(&model.StudentFee{}).
			Where("id = ?", fee.ID).
			Update("last_reminder_at", m.now().UTC()).Error; err != nil {
			log.Printf("[CRON] Failed to mark reminder for fee %d: %v", fee.ID, err)
		}

		if isOverdue {
			overdue++
		} else {
			upcoming++
		}
	}

	return &JobResult{
		Message: fmt.Sprintf("Reminded %d upcoming and %d overdue fees", upcoming, overdue),
		Metadata: map[string]interface{}{
			"upcoming":   upcoming,
			"overdue":    overdue,
			"skipped":    skipped,
			"days_ahead": m.deps.ReminderDays,
		},
	}, nil
}

// ExpireCheckouts marks gateway checkouts that were never confirmed as expired
func (m *CronManager) ExpireCheckouts(ctx context.Context) (*JobResult, error) {
	if m.deps.Checkouts == nil {
		return &JobResult{Message: "Online payments are not configured"}, nil
	}

	expired, err := m.deps.Checkouts.ExpireStale(ctx, checkoutMaxAge)
	if err != nil {
		return nil, err
	}
	return &JobResult{
		Message:  fmt.Sprintf("Expired %d checkout sessions", expired),
		Metadata: map[string]interface{}{"expired": expired},
	}, nil
}

// ExportReports uploads the full assignment list and the previous day's
// payments to object storage
func (m *CronManager) ExportReports(ctx context.Context) (*JobResult, error) {
	if !m.deps.Exports.IsConfigured() {
		return &JobResult{Message: "Report storage is not configured"}, nil
	}

	count, err := m.deps.Exports.StudentFeeRows(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return &JobResult{Message: "No assignments to export"}, nil
	}

	today := m.today()
	assignments, err := m.deps.Exports.ExportAssignments(ctx, services.AssignmentFilter{}, today)
	if err != nil {
		return nil, err
	}

	to := fees.StartOfDay(today)
	from := to.AddDate(0, 0, -1)
	payments, err := m.deps.Exports.ExportPayments(ctx, services.PaymentFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}

	return &JobResult{
		Message: fmt.Sprintf("Exported %d assignments and %d payments", assignments.Rows, payments.Rows),
		Metadata: map[string]interface{}{
			"assignments_key": assignments.Key,
			"payments_key":    payments.Key,
		},
	}, nil
}

// CleanupOldData removes expired tokens, old notifications and old job logs
func (m *CronManager) CleanupOldData(ctx context.Context) (*JobResult, error) {
	metadata := map[string]interface{}{}
	var total int64

	// 1. Expired JWT tokens from blacklist
	if m.deps.Blacklist != nil {
		n, err := m.deps.Blacklist.CleanupExpiredTokens(ctx)
		if err != nil {
			log.Printf("[CRON] Failed to clean token blacklist: %v", err)
		} else {
			metadata["tokens"] = n
			total += n
		}
	}

	// 2. Read notifications older than 90 days
	if m.deps.Notifications != nil {
		n, err := m.deps.Notifications.CleanupOldNotifications(ctx, notificationMaxAge)
		if err != nil {
			log.Printf("[CRON] Failed to clean notifications: %v", err)
		} else {
			metadata["notifications"] = n
			total += n
		}
	}

	// 3. Cron job logs older than 90 days
	result := m.db.WithContext(ctx).
		Where("created_at < ?", m.now().Add(-cronLogMaxAge).UTC()).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		log.Printf("[CRON] Failed to clean cron logs: %v", result.Error)
	} else {
		metadata["cron_logs"] = result.RowsAffected
		total += result.RowsAffected
	}

	return &JobResult{
		Message:  fmt.Sprintf("Cleaned %d old records", total),
		Metadata: metadata,
	}, nil
}
