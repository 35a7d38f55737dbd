package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLocker is an in-process Locker
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]bool{}}
}

func (m *memLocker) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *memLocker) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.held, k)
	}
	return nil
}

func assignedFee(t *testing.T, svc *AssignmentService, student *model.Student, plan *model.FeePlan) *model.StudentFee {
	t.Helper()
	fee, err := svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(7)}, testToday())
	require.NoError(t, err)
	return fee
}

func setupPayment(t *testing.T) (*PaymentService, *model.StudentFee, *recordedEvents, *memLocker) {
	t.Helper()
	db := newTestDB(t)
	student := createStudent(t, db, "payer@example.com", fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Computer Science", StartYear: 2024, EndYear: 2028})
	plan := createPlan(t, db, "Computer Science", "2024-2025")
	fee := assignedFee(t, NewAssignmentService(db, nil), student, plan)

	events := &recordedEvents{}
	locker := newMemLocker()
	return NewPaymentService(db, locker, events), fee, events, locker
}

func TestRecordPaymentSequence(t *testing.T) {
	svc, fee, events, locker := setupPayment(t)
	today := testToday()

	payment, updated, err := svc.Record(t.Context(), PaymentInput{StudentFeeID: fee.ID, Amount: "850", Method: "upi"}, PaymentOptions{}, today)
	require.NoError(t, err)
	assert.Equal(t, fees.MethodUPI, payment.Method)
	assert.True(t, dec("850").Equal(updated.AmountPaid))
	assert.Equal(t, fees.StatusPartial, updated.Status)
	assert.Equal(t, 2, updated.Version)
	assert.Empty(t, locker.held)

	_, _, err = svc.Record(t.Context(), PaymentInput{StudentFeeID: fee.ID, Amount: "1000.50"}, PaymentOptions{}, today)
	require.Error(t, err)
	assert.True(t, fees.IsKind(err, fees.KindExceedsBalance))
	assert.Contains(t, err.Error(), "1000.00")

	_, updated, err = svc.Record(t.Context(), PaymentInput{StudentFeeID: fee.ID, Amount: "1000"}, PaymentOptions{}, today)
	require.NoError(t, err)
	assert.True(t, dec("1850").Equal(updated.AmountPaid))
	assert.Equal(t, fees.StatusPaid, updated.Status)
	assert.True(t, updated.Balance().IsZero())

	_, _, err = svc.Record(t.Context(), PaymentInput{StudentFeeID: fee.ID, Amount: "0.50"}, PaymentOptions{}, today)
	assert.True(t, fees.IsKind(err, fees.KindExceedsBalance))

	assert.Len(t, events.payments, 2)

	list, total, err := svc.List(t.Context(), PaymentFilter{StudentFeeID: fee.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)
}

func TestRecordPaymentValidation(t *testing.T) {
	svc, fee, events, _ := setupPayment(t)
	today := testToday()

	tests := []struct {
		name  string
		input PaymentInput
		field string
		kind  fees.Kind
	}{
		{"zero amount", PaymentInput{StudentFeeID: fee.ID, Amount: "0"}, "amount", fees.KindInvalidAmount},
		{"negative amount", PaymentInput{StudentFeeID: fee.ID, Amount: "-5"}, "amount", fees.KindInvalidAmount},
		{"too many decimals", PaymentInput{StudentFeeID: fee.ID, Amount: "10.005"}, "amount", fees.KindInvalidAmount},
		{"not a number", PaymentInput{StudentFeeID: fee.ID, Amount: "ten"}, "amount", fees.KindInvalidAmount},
		{"unknown method", PaymentInput{StudentFeeID: fee.ID, Amount: "10", Method: "CHEQUE"}, "method", fees.KindInvalidMethod},
		{"future date", PaymentInput{StudentFeeID: fee.ID, Amount: "10", PaidAt: dueIn(1)}, "paid_at", fees.KindInvalidDate},
		{"missing fee", PaymentInput{Amount: "10"}, "student_fee_id", fees.KindMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Record(t.Context(), tt.input, PaymentOptions{}, today)
			require.Error(t, err)
			var found bool
			for _, e := range fees.Errors(err) {
				if e.Field == tt.field {
					found = true
					assert.Equal(t, tt.kind, e.Kind)
				}
			}
			assert.True(t, found, "expected an error on %s", tt.field)
		})
	}

	stored, err := NewAssignmentService(svc.db, nil).Get(t.Context(), fee.ID)
	require.NoError(t, err)
	assert.True(t, stored.AmountPaid.IsZero())
	assert.Equal(t, 1, stored.Version)
	assert.Empty(t, events.payments)
}

func TestRecordPaymentOwnershipAndLock(t *testing.T) {
	svc, fee, _, locker := setupPayment(t)
	today := testToday()

	_, _, err := svc.Record(t.Context(), PaymentInput{StudentFeeID: fee.ID, Amount: "10"}, PaymentOptions{StudentID: fee.StudentID + 1}, today)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	_, _, err = svc.Record(t.Context(), PaymentInput{StudentFeeID: 999, Amount: "10"}, PaymentOptions{}, today)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	locker.held[lockKey(fee.ID)] = true
	_, _, err = svc.Record(t.Context(), PaymentInput{StudentFeeID: fee.ID, Amount: "10"}, PaymentOptions{}, today)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestRecordPaymentCheckoutOrderOnce(t *testing.T) {
	svc, fee, _, _ := setupPayment(t)
	today := testToday()
	opts := PaymentOptions{CheckoutOrderID: "FEE-1-abc"}

	payment, _, err := svc.Record(t.Context(), PaymentInput{StudentFeeID: fee.ID, Amount: "100", Method: "CARD"}, opts, today)
	require.NoError(t, err)
	require.NotNil(t, payment.CheckoutOrderID)

	_, _, err = svc.Record(t.Context(), PaymentInput{StudentFeeID: fee.ID, Amount: "100", Method: "CARD"}, opts, today)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	stored, err := NewAssignmentService(svc.db, nil).Get(t.Context(), fee.ID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(stored.AmountPaid))
}
