package fees

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		assigned, paid string
		want           Status
	}{
		{"1850", "0", StatusPending},
		{"1850", "0.01", StatusPartial},
		{"1850", "1849.99", StatusPartial},
		{"1850", "1850", StatusPaid},
		{"0", "0", StatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.assigned+"/"+tt.paid, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(dec(tt.assigned), dec(tt.paid)))
		})
	}
}

func TestFeePlanPaymentScenario(t *testing.T) {
	total := ComputeTotal(Components{
		Tuition: dec("1000"), Hostel: dec("500"), Library: dec("100"), Lab: dec("200"), Sports: dec("50"),
	})
	require.True(t, total.Equal(dec("1850")))

	fresh := NewLedger(total)
	assert.Equal(t, StatusPending, fresh.Status)
	assert.True(t, fresh.Balance().Equal(total))

	t.Run("single full payment", func(t *testing.T) {
		l, err := ApplyPayment(fresh, dec("1850"))
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, l.Status)
		assert.True(t, l.Balance().IsZero())
	})

	t.Run("two instalments", func(t *testing.T) {
		l, err := ApplyPayment(fresh, dec("900"))
		require.NoError(t, err)
		assert.Equal(t, StatusPartial, l.Status)
		assert.True(t, l.Balance().Equal(dec("950")))

		l, err = ApplyPayment(l, dec("950"))
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, l.Status)
		assert.True(t, l.Balance().IsZero())
	})

	t.Run("overpayment rejected without mutation", func(t *testing.T) {
		l, err := ApplyPayment(fresh, dec("2000"))
		require.Error(t, err)
		assert.True(t, IsKind(err, KindExceedsBalance))
		assert.Equal(t, fresh, l)
		assert.True(t, fresh.AmountPaid.IsZero())
		assert.Equal(t, StatusPending, fresh.Status)
	})
}

func TestApplyPaymentInvalidAmount(t *testing.T) {
	l := NewLedger(dec("100"))
	for _, amt := range []string{"0", "-5", "0.001"} {
		_, err := ApplyPayment(l, dec(amt))
		require.Error(t, err, amt)
		assert.True(t, IsKind(err, KindInvalidAmount), amt)
	}
}

func TestApplyPaymentMonotonic(t *testing.T) {
	l := NewLedger(dec("1000"))
	payments := []string{"100", "0", "250.50", "700", "649.50", "0.01", "1"}

	prevPaid := decimal.Zero
	for _, p := range payments {
		next, err := ApplyPayment(l, dec(p))
		if err == nil {
			l = next
		}
		assert.True(t, l.AmountPaid.GreaterThanOrEqual(prevPaid))
		assert.True(t, l.AmountPaid.LessThanOrEqual(l.AmountAssigned))
		assert.True(t, l.Balance().Equal(l.AmountAssigned.Sub(l.AmountPaid)))
		assert.Equal(t, DeriveStatus(l.AmountAssigned, l.AmountPaid), l.Status)
		prevPaid = l.AmountPaid
	}
	assert.Equal(t, StatusPaid, l.Status)
}

func TestParsePaymentAmount(t *testing.T) {
	d, err := ParsePaymentAmount("12.50")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("12.5")))

	for _, raw := range []RawAmount{"", "abc", "0", "-1", "1.999", "1e30000000", "1E2", "1.2.3", "-", "."} {
		_, err := ParsePaymentAmount(raw)
		assert.True(t, IsKind(err, KindInvalidAmount), string(raw))
	}
}

func TestParsePaymentAmountLimit(t *testing.T) {
	d, err := ParsePaymentAmount(RawAmount(MaxAmount.StringFixed(CurrencyScale)))
	require.NoError(t, err)
	assert.True(t, d.Equal(MaxAmount))

	for _, raw := range []RawAmount{"1000000000000.00", RawAmount(strings.Repeat("1", 40))} {
		_, err := ParsePaymentAmount(raw)
		require.Error(t, err, string(raw))
		assert.Equal(t, map[string]string{"amount": "Payment amount must not exceed 999999999999.99"}, Errors(err).ByField())
	}
}

func TestMethodValid(t *testing.T) {
	assert.True(t, MethodNetBanking.Valid())
	assert.False(t, Method("CHEQUE").Valid())
}
