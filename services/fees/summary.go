package fees

import (
	"time"

	"github.com/shopspring/decimal"
)

// SummaryItem is one assignment as seen by the summary.
type SummaryItem struct {
	Ledger  Ledger
	DueDate time.Time
}

// Summary aggregates a student's assignments for the portal and admin views.
type Summary struct {
	TotalAssigned  decimal.Decimal `json:"total_assigned"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	Balance        decimal.Decimal `json:"balance"`
	PaidPercentage float64         `json:"paid_percentage"`
	PendingCount   int             `json:"pending_count"`
	PartialCount   int             `json:"partial_count"`
	PaidCount      int             `json:"paid_count"`
	OverdueCount   int             `json:"overdue_count"`
	NextDueDate    *time.Time      `json:"next_due_date,omitempty"`
}

// Summarize totals the items. Status is re-derived from the amounts so the
// counts never disagree with a stale stored status. The next due date is the
// earliest unpaid due date on or after today.
func Summarize(items []SummaryItem, today time.Time) Summary {
	s := Summary{TotalAssigned: decimal.Zero, TotalPaid: decimal.Zero}
	day := StartOfDay(today)

	for _, it := range items {
		s.TotalAssigned = s.TotalAssigned.Add(it.Ledger.AmountAssigned)
		s.TotalPaid = s.TotalPaid.Add(it.Ledger.AmountPaid)

		switch DeriveStatus(it.Ledger.AmountAssigned, it.Ledger.AmountPaid) {
		case StatusPaid:
			s.PaidCount++
			continue
		case StatusPartial:
			s.PartialCount++
		default:
			s.PendingCount++
		}

		due := StartOfDay(it.DueDate.In(today.Location()))
		if due.Before(day) {
			s.OverdueCount++
			continue
		}
		if s.NextDueDate == nil || due.Before(*s.NextDueDate) {
			d := due
			s.NextDueDate = &d
		}
	}

	s.Balance = s.TotalAssigned.Sub(s.TotalPaid)
	if s.TotalAssigned.IsPositive() {
		s.PaidPercentage = s.TotalPaid.Div(s.TotalAssigned).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return s
}
