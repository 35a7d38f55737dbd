package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/fee-management/services/fees"
)

// DateRange reads the from and to query parameters. A calendar-day "to" is
// inclusive, so the returned bound is the start of the following day.
func DateRange(c *fiber.Ctx, loc *time.Location) (from, to *time.Time, err error) {
	from, err = fees.ParseDate("from", c.Query("from"), loc)
	if err != nil {
		return nil, nil, err
	}
	raw := strings.TrimSpace(c.Query("to"))
	to, err = fees.ParseDate("to", raw, loc)
	if err != nil {
		return nil, nil, err
	}
	if to != nil && len(raw) == len(fees.DateLayout) {
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	if from != nil && to != nil && !to.After(*from) {
		return nil, nil, fees.NewError(fees.KindInvalidDate, "to", "End date must not be before start date")
	}
	return from, to, nil
}
