package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrStudentNotFound      = errors.New("student not found")
	ErrFeePlanNotFound      = errors.New("fee plan not found")
	ErrAssignmentNotFound   = errors.New("fee assignment not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrCheckoutNotFound     = errors.New("checkout session not found")

	ErrDuplicateAssignment = errors.New("Fee plan already assigned to this student for the same academic year")
	ErrDuplicateFeePlan    = errors.New("a fee plan already exists for this course and academic year")
	ErrEmailTaken          = errors.New("email is already in use")

	ErrStudentHasAssignments = errors.New("student has fee assignments and cannot be deleted")
	ErrFeePlanHasAssignments = errors.New("fee plan is assigned to students and cannot be deleted")
	ErrAssignmentHasPayments = errors.New("fee assignment has recorded payments and cannot be deleted")
	ErrConcurrentUpdate      = errors.New("the fee record was changed by another request, please retry")

	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrCheckoutNotConfigured = errors.New("online payments are not configured")
	ErrInvalidSignature      = errors.New("invalid gateway signature")
	ErrCheckoutMismatch      = errors.New("gateway amount does not match the checkout")
	ErrExportNotConfigured   = errors.New("report storage is not configured")
)

// isDuplicateKey reports a unique constraint violation. TranslateError covers
// the postgres driver; the message check covers drivers that do not translate.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// notFound maps gorm.ErrRecordNotFound to sentinel and passes other errors through
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
