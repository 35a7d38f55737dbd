package fees

import (
	"errors"
	"strings"
)

// Kind classifies a validation failure so callers can map it to a response.
type Kind string

const (
	KindMissingField        Kind = "MissingField"
	KindPastDueDate         Kind = "PastDueDate"
	KindNoEligibleCourse    Kind = "NoEligibleCourse"
	KindCourseYearMismatch  Kind = "CourseYearMismatch"
	KindInvalidAmount       Kind = "InvalidAmount"
	KindExceedsBalance      Kind = "ExceedsBalance"
	KindInvalidComponent    Kind = "InvalidComponent"
	KindInvalidEnrollment   Kind = "InvalidEnrollment"
	KindInvalidAcademicYear Kind = "InvalidAcademicYear"
	KindInvalidDate         Kind = "InvalidDate"
	KindInvalidMethod       Kind = "InvalidMethod"
)

// ValidationError is a field-keyed business rule violation.
type ValidationError struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewError builds a single violation.
func NewError(kind Kind, field, message string) *ValidationError {
	return newError(kind, field, message)
}

func newError(kind Kind, field, message string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Message: message}
}

// FieldErrors collects several violations found in one pass.
type FieldErrors []*ValidationError

func (f FieldErrors) Error() string {
	msgs := make([]string, 0, len(f))
	for _, e := range f {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// ByField returns the first message reported for each field.
func (f FieldErrors) ByField() map[string]string {
	out := make(map[string]string, len(f))
	for _, e := range f {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

// Err returns nil when no violation was collected.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// Errors flattens err into its individual violations. It returns nil if err
// carries no ValidationError.
func Errors(err error) FieldErrors {
	var list FieldErrors
	if errors.As(err, &list) {
		return list
	}
	var single *ValidationError
	if errors.As(err, &single) {
		return FieldErrors{single}
	}
	return nil
}

// KindOf reports the kind of the first violation carried by err.
func KindOf(err error) (Kind, bool) {
	list := Errors(err)
	if len(list) == 0 {
		return "", false
	}
	return list[0].Kind, true
}

// IsKind reports whether err carries a violation of the given kind.
func IsKind(err error, kind Kind) bool {
	for _, e := range Errors(err) {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
