package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sahilchouksey/fee-management/database"
	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	dashboardCacheKey = "dashboard:overview"
	dashboardCacheTTL = 60 * time.Second
	upcomingWindow    = 7
)

// ErrReportsUnavailable is returned when no reporting connection is open
var ErrReportsUnavailable = errors.New("reports are not available")

// JSONCache is the slice of RedisCache the dashboard uses
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// DashboardOverview is the admin landing page
type DashboardOverview struct {
	TotalStudents    int64           `json:"total_students"`
	TotalFeePlans    int64           `json:"total_fee_plans"`
	TotalAssignments int64           `json:"total_assignments"`
	TotalAssigned    decimal.Decimal `json:"total_assigned"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	Outstanding      decimal.Decimal `json:"outstanding"`
	CollectionRate   float64         `json:"collection_rate"`
	PendingCount     int64           `json:"pending_count"`
	PartialCount     int64           `json:"partial_count"`
	PaidCount        int64           `json:"paid_count"`
	OverdueCount     int64           `json:"overdue_count"`
	DueThisWeek      int64           `json:"due_this_week"`
	CollectedToday   decimal.Decimal `json:"collected_today"`
	RecentPayments   []model.Payment `json:"recent_payments"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// DashboardService builds the admin overview and the fee reports
type DashboardService struct {
	db      *gorm.DB
	cache   JSONCache
	reports *database.ReportStore
}

// NewDashboardService creates a new dashboard service. cache and reports may be nil.
func NewDashboardService(db *gorm.DB, cache JSONCache, reports *database.ReportStore) *DashboardService {
	return &DashboardService{db: db, cache: cache, reports: reports}
}

// Overview returns the cached overview, rebuilding it when the cache is cold
func (s *DashboardService) Overview(ctx context.Context, today time.Time) (*DashboardOverview, error) {
	if s.cache != nil {
		var cached DashboardOverview
		if err := s.cache.GetJSON(ctx, dashboardCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	overview, err := s.build(ctx, today)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, dashboardCacheKey, overview, dashboardCacheTTL); err != nil {
			log.Printf("Failed to cache dashboard overview: %v", err)
		}
	}
	return overview, nil
}

func (s *DashboardService) build(ctx context.Context, today time.Time) (*DashboardOverview, error) {
	db := s.db.WithContext(ctx)
	o := &DashboardOverview{GeneratedAt: time.Now().UTC()}

	if err := db.Model(&model.Student{}).Count(&o.TotalStudents).Error; err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	if err := db.Model(&model.FeePlan{}).Count(&o.TotalFeePlans).Error; err != nil {
		return nil, fmt.Errorf("failed to count fee plans: %w", err)
	}

	var assigned, collected decimal.NullDecimal
	if err := db.Model(&model.StudentFee{}).
		Select("COUNT(*), SUM(amount_assigned), SUM(amount_paid)").
		Row().Scan(&o.TotalAssignments, &assigned, &collected); err != nil {
		return nil, fmt.Errorf("failed to total assignments: %w", err)
	}
	o.TotalAssigned = assigned.Decimal
	o.TotalCollected = collected.Decimal
	o.Outstanding = o.TotalAssigned.Sub(o.TotalCollected)
	if o.TotalAssigned.IsPositive() {
		o.CollectionRate = o.TotalCollected.Div(o.TotalAssigned).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	rows, err := db.Model(&model.StudentFee{}).Select("status, COUNT(*)").Group("status").Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	for rows.Next() {
		var status fees.Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to count statuses: %w", err)
		}
		switch status {
		case fees.StatusPending:
			o.PendingCount = count
		case fees.StatusPartial:
			o.PartialCount = count
		case fees.StatusPaid:
			o.PaidCount = count
		}
	}
	rows.Close()

	day := fees.StartOfDay(today)
	unpaid := db.Model(&model.StudentFee{}).Where("status <> ?", fees.StatusPaid)
	if err := unpaid.Session(&gorm.Session{}).Where("due_date < ?", day.UTC()).Count(&o.OverdueCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count overdue fees: %w", err)
	}
	if err := unpaid.Session(&gorm.Session{}).
		Where("due_date >= ? AND due_date < ?", day.UTC(), day.AddDate(0, 0, upcomingWindow).UTC()).
		Count(&o.DueThisWeek).Error; err != nil {
		return nil, fmt.Errorf("failed to count upcoming fees: %w", err)
	}

	var collectedToday decimal.NullDecimal
	if err := db.Model(&model.Payment{}).
		Select("SUM(amount)").
		Where("paid_at >= ? AND paid_at < ?", day.UTC(), day.AddDate(0, 0, 1).UTC()).
		Row().Scan(&collectedToday); err != nil {
		return nil, fmt.Errorf("failed to total today's payments: %w", err)
	}
	o.CollectedToday = collectedToday.Decimal

	if err := db.Order("paid_at DESC, id DESC").Limit(5).Find(&o.RecentPayments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch recent payments: %w", err)
	}
	return o, nil
}

// Invalidate drops the cached overview
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		log.Printf("Failed to invalidate dashboard cache: %v", err)
	}
}

// FeeAssigned implements FeeEvents
func (s *DashboardService) FeeAssigned(ctx context.Context, _ *model.Student, _ *model.StudentFee) {
	s.Invalidate(ctx)
}

// PaymentRecorded implements FeeEvents
func (s *DashboardService) PaymentRecorded(ctx context.Context, _ *model.Student, _ *model.StudentFee, _ *model.Payment) {
	s.Invalidate(ctx)
}

// Collections runs the per-course collections report
func (s *DashboardService) Collections(ctx context.Context, filter database.CollectionFilter, today time.Time) ([]database.CollectionRow, error) {
	if s.reports == nil {
		return nil, ErrReportsUnavailable
	}
	return s.reports.Collections(ctx, filter, fees.StartOfDay(today).UTC())
}

// MethodTotals sums payments per method over the calendar days [from, to]
func (s *DashboardService) MethodTotals(ctx context.Context, from, to time.Time) ([]database.MethodTotal, error) {
	if s.reports == nil {
		return nil, ErrReportsUnavailable
	}
	return s.reports.MethodTotals(ctx, fees.StartOfDay(from).UTC(), fees.StartOfDay(to).AddDate(0, 0, 1).UTC())
}
