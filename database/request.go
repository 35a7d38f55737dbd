package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CollectionFilter narrows the collections report
type CollectionFilter struct {
	Course        string
	AcademicYears []string
}

// CollectionRow is one course and academic year of the collections report
type CollectionRow struct {
	Course         string          `json:"course"`
	AcademicYear   string          `json:"academic_year"`
	Students       int64           `json:"students"`
	Assignments    int64           `json:"assignments"`
	TotalAssigned  decimal.Decimal `json:"total_assigned"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	PendingCount   int64           `json:"pending_count"`
	PartialCount   int64           `json:"partial_count"`
	PaidCount      int64           `json:"paid_count"`
	OverdueCount   int64           `json:"overdue_count"`
}

// MethodTotal is the amount collected through one payment method
type MethodTotal struct {
	Method       string          `json:"method"`
	PaymentCount int64           `json:"payment_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// collectionsQuery builds the report SQL and its positional arguments
func collectionsQuery(filter CollectionFilter, today time.Time) (string, []interface{}) {
	args := []interface{}{today}
	where := []string{"1=1"}

	if course := strings.TrimSpace(filter.Course); course != "" {
		args = append(args, course)
		where = append(where, fmt.Sprintf("LOWER(plan_course) = LOWER($%d)", len(args)))
	}
	if len(filter.AcademicYears) > 0 {
		args = append(args, pq.Array(filter.AcademicYears))
		where = append(where, fmt.Sprintf("academic_year = ANY($%d)", len(args)))
	}

	query := `
	SELECT
		plan_course,
		academic_year,
		COUNT(DISTINCT student_id),
		COUNT(*),
		COALESCE(SUM(amount_assigned), 0),
		COALESCE(SUM(amount_paid), 0),
		COALESCE(SUM(balance), 0),
		COUNT(*) FILTER (WHERE derived_status = 'PENDING'),
		COUNT(*) FILTER (WHERE derived_status = 'PARTIAL'),
		COUNT(*) FILTER (WHERE derived_status = 'PAID'),
		COUNT(*) FILTER (WHERE derived_status <> 'PAID' AND due_date < $1)
	FROM student_fee_ledger
	WHERE ` + strings.Join(where, " AND ") + `
	GROUP BY plan_course, academic_year
	ORDER BY academic_year DESC, plan_course ASC;`

	return query, args
}

// Collections reports assigned, collected and outstanding amounts per course
// and academic year. Assignments due before today and not yet paid count as
// overdue.
func (s *ReportStore) Collections(ctx context.Context, filter CollectionFilter, today time.Time) ([]CollectionRow, error) {
	query, args := collectionsQuery(filter, today)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapReport("collections", err)
	}
	defer rows.Close()

	report := []CollectionRow{}
	for rows.Next() {
		row, err := scanIntoCollectionRow(rows)
		if err != nil {
			return nil, wrapReport("collections", err)
		}
		report = append(report, *row)
	}
	return report, wrapReport("collections", rows.Err())
}

func scanIntoCollectionRow(rows *sql.Rows) (*CollectionRow, error) {
	row := new(CollectionRow)
	err := rows.Scan(
		&row.Course,
		&row.AcademicYear,
		&row.Students,
		&row.Assignments,
		&row.TotalAssigned,
		&row.TotalCollected,
		&row.Outstanding,
		&row.PendingCount,
		&row.PartialCount,
		&row.PaidCount,
		&row.OverdueCount,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// MethodTotals sums payments per method over [from, to)
func (s *ReportStore) MethodTotals(ctx context.Context, from, to time.Time) ([]MethodTotal, error) {
	query := `
	SELECT method, SUM(payment_count), COALESCE(SUM(total_amount), 0)
	FROM payment_daily_totals
	WHERE day >= $1 AND day < $2
	GROUP BY method
	ORDER BY method;`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, wrapReport("method totals", err)
	}
	defer rows.Close()

	totals := []MethodTotal{}
	for rows.Next() {
		var t MethodTotal
		if err := rows.Scan(&t.Method, &t.PaymentCount, &t.TotalAmount); err != nil {
			return nil, wrapReport("method totals", err)
		}
		totals = append(totals, t)
	}
	return totals, wrapReport("method totals", rows.Err())
}
