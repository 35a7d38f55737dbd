package fees

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Status is the payment state of an assignment.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
)

// DeriveStatus is the single rule mapping amounts to a status. Every view and
// the payment path go through it.
func DeriveStatus(amountAssigned, amountPaid decimal.Decimal) Status {
	switch {
	case !amountAssigned.Sub(amountPaid).IsPositive():
		return StatusPaid
	case amountPaid.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}

// Ledger is the balance-bearing state of an assignment.
type Ledger struct {
	AmountAssigned decimal.Decimal `json:"amount_assigned"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	Status         Status          `json:"status"`
}

// NewLedger starts a ledger for a freshly assigned amount.
func NewLedger(amountAssigned decimal.Decimal) Ledger {
	return LedgerOf(amountAssigned, decimal.Zero)
}

// LedgerOf builds a ledger with its status derived from the amounts.
func LedgerOf(amountAssigned, amountPaid decimal.Decimal) Ledger {
	return Ledger{
		AmountAssigned: amountAssigned,
		AmountPaid:     amountPaid,
		Status:         DeriveStatus(amountAssigned, amountPaid),
	}
}

// Balance is what is still owed.
func (l Ledger) Balance() decimal.Decimal {
	return l.AmountAssigned.Sub(l.AmountPaid)
}

// ApplyPayment returns the ledger after amount is paid. l itself is left
// untouched, so a rejected payment never leaves partial state behind.
func ApplyPayment(l Ledger, amount decimal.Decimal) (Ledger, error) {
	if !amount.IsPositive() {
		return l, newError(KindInvalidAmount, "amount", "Payment amount must be greater than zero")
	}
	if !HasCurrencyScale(amount) {
		return l, newError(KindInvalidAmount, "amount", "Payment amount must have at most 2 decimal places")
	}
	if amount.GreaterThan(l.Balance()) {
		return l, newError(KindExceedsBalance, "amount",
			"Payment amount "+amount.StringFixed(CurrencyScale)+" exceeds remaining balance "+l.Balance().StringFixed(CurrencyScale))
	}
	return LedgerOf(l.AmountAssigned, l.AmountPaid.Add(amount)), nil
}

// ParsePaymentAmount parses a submitted amount, reporting InvalidAmount for
// anything that is not a positive whole-cent number.
func ParsePaymentAmount(raw RawAmount) (decimal.Decimal, error) {
	d, err := raw.Parse()
	if errors.Is(err, errAmountLength) {
		return decimal.Zero, newError(KindInvalidAmount, "amount", "Payment amount must not exceed "+MaxAmount.StringFixed(CurrencyScale))
	}
	if err != nil {
		return decimal.Zero, newError(KindInvalidAmount, "amount", "Payment amount must be a valid number")
	}
	if !d.IsPositive() {
		return decimal.Zero, newError(KindInvalidAmount, "amount", "Payment amount must be greater than zero")
	}
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, newError(KindInvalidAmount, "amount", "Payment amount must not exceed "+MaxAmount.StringFixed(CurrencyScale))
	}
	if !HasCurrencyScale(d) {
		return decimal.Zero, newError(KindInvalidAmount, "amount", "Payment amount must have at most 2 decimal places")
	}
	return d, nil
}

// Method is how a payment was made.
type Method string

const (
	MethodCash       Method = "CASH"
	MethodCard       Method = "CARD"
	MethodUPI        Method = "UPI"
	MethodNetBanking Method = "NET_BANKING"
	MethodOther      Method = "OTHER"
)

// Methods lists every accepted payment method.
var Methods = []Method{MethodCash, MethodCard, MethodUPI, MethodNetBanking, MethodOther}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}
