package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/digitalocean"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Export kinds
const (
	ExportAssignments = "assignments"
	ExportPayments    = "payments"
)

// ReportUploader stores exported files. SpacesClient satisfies it.
type ReportUploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PresignedURL(key string, expiration time.Duration) (string, error)
}

// ExportResult points at an uploaded export
type ExportResult struct {
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService writes fee data as CSV and uploads it to object storage
type ExportService struct {
	db       *gorm.DB
	uploader ReportUploader
	location *time.Location
}

// NewExportService creates a new export service. uploader may be nil, in
// which case exports can still be rendered but not uploaded.
func NewExportService(db *gorm.DB, uploader ReportUploader, loc *time.Location) *ExportService {
	if loc == nil {
		loc = time.Local
	}
	return &ExportService{db: db, uploader: uploader, location: loc}
}

// IsConfigured reports whether exports can be uploaded
func (s *ExportService) IsConfigured() bool {
	return s != nil && s.uploader != nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(fees.CurrencyScale)
}

// AssignmentsCSV renders every assignment matching filter, ignoring paging
func (s *ExportService) AssignmentsCSV(ctx context.Context, filter AssignmentFilter, today time.Time) ([]byte, int, error) {
	filter.Page, filter.Limit = 1, 100
	svc := NewAssignmentService(s.db, nil)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{
		"assignment_id", "student_id", "student_name", "student_email", "course", "academic_year",
		"amount_assigned", "amount_paid", "balance", "status", "due_date", "overdue",
	})

	rows := 0
	for {
		list, total, err := svc.List(ctx, filter, today)
		if err != nil {
			return nil, 0, err
		}
		for i := range list {
			resp := list[i].ToResponse(today)
			email := ""
			if list[i].Student != nil {
				email = list[i].Student.Email
			}
			_ = w.Write([]string{
				strconv.FormatUint(uint64(resp.ID), 10),
				strconv.FormatUint(uint64(resp.StudentID), 10),
				resp.StudentName,
				email,
				resp.Course,
				resp.AcademicYear,
				money(resp.AmountAssigned),
				money(resp.AmountPaid),
				money(resp.Balance),
				string(resp.Status),
				resp.DueDate.In(s.location).Format(fees.DateLayout),
				strconv.FormatBool(resp.Overdue),
			})
			rows++
		}
		if int64(filter.Page*filter.Limit) >= total || len(list) == 0 {
			break
		}
		filter.Page++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("failed to write assignments csv: %w", err)
	}
	return buf.Bytes(), rows, nil
}

// PaymentsCSV renders every payment matching filter, ignoring paging
func (s *ExportService) PaymentsCSV(ctx context.Context, filter PaymentFilter) ([]byte, int, error) {
	filter.Page, filter.Limit = 1, 100
	svc := NewPaymentService(s.db, nil, nil)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{
		"payment_id", "student_fee_id", "student_id", "amount", "method", "paid_at", "reference_no", "checkout_order_id", "notes",
	})

	rows := 0
	for {
		list, total, err := svc.List(ctx, filter)
		if err != nil {
			return nil, 0, err
		}
		for _, p := range list {
			orderID := ""
			if p.CheckoutOrderID != nil {
				orderID = *p.CheckoutOrderID
			}
			_ = w.Write([]string{
				strconv.FormatUint(uint64(p.ID), 10),
				strconv.FormatUint(uint64(p.StudentFeeID), 10),
				strconv.FormatUint(uint64(p.StudentID), 10),
				money(p.Amount),
				string(p.Method),
				p.PaidAt.In(s.location).Format(time.RFC3339),
				p.ReferenceNo,
				orderID,
				p.Notes,
			})
			rows++
		}
		if int64(filter.Page*filter.Limit) >= total || len(list) == 0 {
			break
		}
		filter.Page++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("failed to write payments csv: %w", err)
	}
	return buf.Bytes(), rows, nil
}

// Upload stores a rendered export and returns a time-limited download link
func (s *ExportService) Upload(ctx context.Context, kind string, data []byte, rows int) (*ExportResult, error) {
	if !s.IsConfigured() {
		return nil, ErrExportNotConfigured
	}

	now := time.Now().In(s.location)
	key := digitalocean.ReportKey(kind, now, ".csv")
	if err := s.uploader.Upload(ctx, key, data, "text/csv"); err != nil {
		return nil, fmt.Errorf("failed to upload %s export: %w", kind, err)
	}

	url, err := s.uploader.PresignedURL(key, digitalocean.DefaultLinkExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s export link: %w", kind, err)
	}

	return &ExportResult{
		Kind:      kind,
		Key:       key,
		URL:       url,
		Rows:      rows,
		ExpiresAt: now.Add(digitalocean.DefaultLinkExpiry),
	}, nil
}

// ExportAssignments renders and uploads the assignments export
func (s *ExportService) ExportAssignments(ctx context.Context, filter AssignmentFilter, today time.Time) (*ExportResult, error) {
	if !s.IsConfigured() {
		return nil, ErrExportNotConfigured
	}
	data, rows, err := s.AssignmentsCSV(ctx, filter, today)
	if err != nil {
		return nil, err
	}
	return s.Upload(ctx, ExportAssignments, data, rows)
}

// ExportPayments renders and uploads the payments export
func (s *ExportService) ExportPayments(ctx context.Context, filter PaymentFilter) (*ExportResult, error) {
	if !s.IsConfigured() {
		return nil, ErrExportNotConfigured
	}
	data, rows, err := s.PaymentsCSV(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.Upload(ctx, ExportPayments, data, rows)
}

var _ ReportUploader = (*digitalocean.SpacesClient)(nil)

// StudentFeeRows is used by the nightly export to skip empty uploads
func (s *ExportService) StudentFeeRows(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.StudentFee{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}
