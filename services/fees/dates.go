package fees

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day form accepted for due dates.
const DateLayout = "2006-01-02"

// ParseDate reads a calendar day ("2006-01-02") as midnight in loc, or a full
// RFC 3339 timestamp as given. A blank value yields a nil time.
func ParseDate(field, s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(DateLayout, s, loc); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return nil, newError(KindInvalidDate, field, "Date must be in YYYY-MM-DD format")
}
