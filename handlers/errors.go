package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/fee-management/services"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/sahilchouksey/fee-management/utils/auth"
	"github.com/sahilchouksey/fee-management/utils/response"
	"github.com/sahilchouksey/fee-management/utils/validation"
)

var (
	notFoundErrors = []error{
		services.ErrStudentNotFound,
		services.ErrFeePlanNotFound,
		services.ErrAssignmentNotFound,
		services.ErrPaymentNotFound,
		services.ErrNotificationNotFound,
		services.ErrCheckoutNotFound,
	}
	conflictErrors = []error{
		services.ErrDuplicateAssignment,
		services.ErrDuplicateFeePlan,
		services.ErrEmailTaken,
		services.ErrStudentHasAssignments,
		services.ErrFeePlanHasAssignments,
		services.ErrAssignmentHasPayments,
		services.ErrConcurrentUpdate,
	}
	unavailableErrors = []error{
		services.ErrCheckoutNotConfigured,
		services.ErrExportNotConfigured,
		services.ErrReportsUnavailable,
		services.ErrEmailNotConfigured,
	}
	unauthorizedErrors = []error{
		services.ErrInvalidCredentials,
		services.ErrTokenRevoked,
		services.ErrTokenInvalidated,
		auth.ErrInvalidToken,
		auth.ErrExpiredToken,
		auth.ErrInvalidClaims,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// RespondError writes the response for an error returned by a service.
// Business rule violations become 422 with one entry per field; anything not
// recognised is logged and hidden behind fallback.
func RespondError(c *fiber.Ctx, err error, fallback string) error {
	if violations := fees.Errors(err); len(violations) > 0 {
		return response.ValidationFailed(c, violations[0].Message, violations)
	}

	switch {
	case isAny(err, notFoundErrors):
		return response.NotFound(c, err.Error())
	case isAny(err, conflictErrors):
		return response.Conflict(c, err.Error())
	case isAny(err, unavailableErrors):
		return response.ServiceUnavailable(c, err.Error())
	case isAny(err, unauthorizedErrors):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, auth.ErrPasswordTooShort):
		return response.ValidationFailed(c, err.Error(), map[string]string{"password": err.Error()})
	}

	log.Errorf("%s: %v", fallback, err)
	return response.InternalServerError(c, fallback)
}

// Invalid writes the 422 response for a struct that failed tag validation
func Invalid(c *fiber.Ctx, err error) error {
	return response.ValidationFailed(c, "", validation.FormatValidationErrors(err))
}

// WeakPassword writes a 422 for a password that fails the strength rules
// and reports whether it did.
func WeakPassword(c *fiber.Ctx, field, password string) (bool, error) {
	ok, problems := validation.ValidatePassword(password)
	if ok {
		return false, nil
	}
	return true, response.ValidationFailed(c, problems[0], map[string]string{field: strings.Join(problems, "; ")})
}

// ParamID reads a positive numeric route parameter
func ParamID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// QueryID reads an optional positive numeric query parameter; zero when absent
func QueryID(c *fiber.Ctx, name string) uint {
	id, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

// Clock returns the current time in the zone calendar days are computed in
type Clock func() time.Time

// ClockIn returns a Clock for loc
func ClockIn(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}
