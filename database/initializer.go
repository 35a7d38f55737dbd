package database

import (
	"context"
	"strings"
)

// statusExpr derives PENDING/PARTIAL/PAID from the amounts the same way
// fees.DeriveStatus does, so reports never trust the stored column.
const statusExpr = `CASE
		WHEN sf.amount_assigned - sf.amount_paid <= 0 THEN 'PAID'
		WHEN sf.amount_paid > 0 THEN 'PARTIAL'
		ELSE 'PENDING'
	END`

// InitViews creates or refreshes the views the reports read from
func (s *ReportStore) InitViews(ctx context.Context) error {
	ledgerView := `
	CREATE OR REPLACE VIEW student_fee_ledger AS
	SELECT
		sf.id,
		sf.student_id,
		sf.fee_plan_id,
		fp.course AS plan_course,
		sf.course AS matched_course,
		sf.academic_year,
		sf.amount_assigned,
		sf.amount_paid,
		sf.amount_assigned - sf.amount_paid AS balance,
		` + statusExpr + ` AS derived_status,
		sf.due_date
	FROM student_fees sf
	JOIN fee_plans fp ON fp.id = sf.fee_plan_id;
	`

	paymentDayView := `
	CREATE OR REPLACE VIEW payment_daily_totals AS
	SELECT
		date_trunc('day', p.paid_at) AS day,
		p.method,
		COUNT(*) AS payment_count,
		SUM(p.amount) AS total_amount
	FROM payments p
	GROUP BY 1, 2;
	`

	_, err := s.db.ExecContext(ctx, strings.Join([]string{ledgerView, paymentDayView}, ""))
	return err
}
