package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const paymentLockTTL = 30 * time.Second

// Locker is a best-effort distributed lock. RedisCache satisfies it.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// PaymentInput records money received against a student fee
type PaymentInput struct {
	StudentFeeID uint           `json:"student_fee_id"`
	Amount       fees.RawAmount `json:"amount"`
	Method       string         `json:"method" validate:"omitempty,payment_method"`
	ReferenceNo  string         `json:"reference_no" validate:"max=50"`
	Notes        string         `json:"notes" validate:"max=500"`
	PaidAt       string         `json:"paid_at"`
}

// PaymentOptions carries who is paying and through what channel
type PaymentOptions struct {
	PayerUserID *uint
	// StudentID restricts the payment to fees owned by this student
	StudentID uint
	// CheckoutOrderID marks a gateway payment; a second payment for the same
	// order is rejected by the unique index
	CheckoutOrderID string
}

// PaymentFilter narrows ListPayments
type PaymentFilter struct {
	StudentID    uint
	StudentFeeID uint
	Method       string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

// PaymentService records payments against student fees
type PaymentService struct {
	db     *gorm.DB
	locker Locker
	events FeeEvents
}

// NewPaymentService creates a new payment service. locker and events may be nil.
func NewPaymentService(db *gorm.DB, locker Locker, events FeeEvents) *PaymentService {
	return &PaymentService{db: db, locker: locker, events: events}
}

func lockKey(studentFeeID uint) string {
	return fmt.Sprintf("lock:student_fee:%d", studentFeeID)
}

// parse validates the payment form, collecting every bad field
func (in *PaymentInput) parse(today time.Time) (amount decimal.Decimal, method fees.Method, paidAt time.Time, err error) {
	var errs fees.FieldErrors

	if in.StudentFeeID == 0 {
		errs = append(errs, fees.NewError(fees.KindMissingField, "student_fee_id", "Fee assignment is required"))
	}

	d, amtErr := fees.ParsePaymentAmount(in.Amount)
	if amtErr != nil {
		errs = append(errs, fees.Errors(amtErr)...)
	}

	method = fees.Method(strings.ToUpper(strings.TrimSpace(in.Method)))
	if method == "" {
		method = fees.MethodCash
	}
	if !method.Valid() {
		errs = append(errs, fees.NewError(fees.KindInvalidMethod, "method", "Payment method is not supported"))
	}

	paidAt = time.Now()
	parsed, dateErr := fees.ParseDate("paid_at", in.PaidAt, today.Location())
	switch {
	case dateErr != nil:
		errs = append(errs, fees.Errors(dateErr)...)
	case parsed != nil:
		if fees.StartOfDay(parsed.In(today.Location())).After(fees.StartOfDay(today)) {
			errs = append(errs, fees.NewError(fees.KindInvalidDate, "paid_at", "Payment date cannot be in the future"))
		}
		paidAt = *parsed
	}

	in.ReferenceNo = strings.TrimSpace(in.ReferenceNo)
	in.Notes = strings.TrimSpace(in.Notes)

	if len(errs) > 0 {
		return decimal.Zero, "", time.Time{}, errs
	}
	return d, method, paidAt, nil
}

// Record applies a payment to a fee. Concurrent payments on one fee are
// serialized by a Redis lock, a row lock and the fee's version column, so
// the paid amount can never exceed the amount assigned.
func (s *PaymentService) Record(ctx context.Context, in PaymentInput, opts PaymentOptions, today time.Time) (*model.Payment, *model.StudentFee, error) {
	amount, method, paidAt, err := in.parse(today)
	if err != nil {
		return nil, nil, err
	}

	if s.locker != nil {
		key := lockKey(in.StudentFeeID)
		ok, err := s.locker.SetNX(ctx, key, "1", paymentLockTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to acquire payment lock: %w", err)
		}
		if !ok {
			return nil, nil, ErrConcurrentUpdate
		}
		defer s.locker.Delete(context.WithoutCancel(ctx), key)
	}

	var fee model.StudentFee
	payment := &model.Payment{}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&fee, in.StudentFeeID).Error; err != nil {
			return notFound(err, ErrAssignmentNotFound)
		}
		if opts.StudentID > 0 && fee.StudentID != opts.StudentID {
			return ErrAssignmentNotFound
		}

		next, err := fees.ApplyPayment(fee.Ledger(), amount)
		if err != nil {
			return err
		}

		*payment = model.Payment{
			StudentFeeID: fee.ID,
			StudentID:    fee.StudentID,
			PayerUserID:  opts.PayerUserID,
			Amount:       amount,
			Method:       method,
			PaidAt:       paidAt.UTC(),
			ReferenceNo:  in.ReferenceNo,
			Notes:        in.Notes,
		}
		if opts.CheckoutOrderID != "" {
			orderID := opts.CheckoutOrderID
			payment.CheckoutOrderID = &orderID
		}
		if err := tx.Create(payment).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrConcurrentUpdate
			}
			return fmt.Errorf("failed to create payment: %w", err)
		}

		result := tx.Model(&model.StudentFee{}).
			Where("id = ? AND version = ?", fee.ID, fee.Version).
			Updates(map[string]interface{}{
				"amount_paid": next.AmountPaid,
				"status":      next.Status,
				"version":     fee.Version + 1,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update fee balance: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}

		fee.AmountPaid = next.AmountPaid
		fee.Status = next.Status
		fee.Version++
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if s.events != nil {
		var student model.Student
		if err := s.db.WithContext(ctx).First(&student, fee.StudentID).Error; err == nil {
			fee.Student = &student
			s.events.PaymentRecorded(ctx, &student, &fee, payment)
		}
	}
	return payment, &fee, nil
}

// Get loads one payment
func (s *PaymentService) Get(ctx context.Context, id uint) (*model.Payment, error) {
	var payment model.Payment
	if err := s.db.WithContext(ctx).Preload("StudentFee").First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}
	return &payment, nil
}

// List returns one page of payments, newest first
func (s *PaymentService) List(ctx context.Context, filter PaymentFilter) ([]model.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Payment{})

	if filter.StudentID > 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.StudentFeeID > 0 {
		query = query.Where("student_fee_id = ?", filter.StudentFeeID)
	}
	if method := strings.ToUpper(strings.TrimSpace(filter.Method)); method != "" {
		query = query.Where("method = ?", method)
	}
	if filter.From != nil {
		query = query.Where("paid_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("paid_at < ?", filter.To.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var payments []model.Payment
	if err := query.Order("paid_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&payments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payments: %w", err)
	}
	return payments, total, nil
}
