// Package fees holds the fee plan, assignment and payment rules. It does no
// I/O and reads no clock; callers pass "today" in.
package fees

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Component field names, as used in requests and field errors.
const (
	FieldTuition = "tuition"
	FieldHostel  = "hostel"
	FieldLibrary = "library"
	FieldLab     = "lab"
	FieldSports  = "sports"
)

var componentLabels = map[string]string{
	FieldTuition: "Tuition fee",
	FieldHostel:  "Hostel fee",
	FieldLibrary: "Library fee",
	FieldLab:     "Lab fee",
	FieldSports:  "Sports fee",
}

// Components holds the five line items of a fee plan.
type Components struct {
	Tuition decimal.Decimal `json:"tuition"`
	Hostel  decimal.Decimal `json:"hostel"`
	Library decimal.Decimal `json:"library"`
	Lab     decimal.Decimal `json:"lab"`
	Sports  decimal.Decimal `json:"sports"`
}

// Total is the exact sum of the components.
func (c Components) Total() decimal.Decimal {
	return ComputeTotal(c)
}

// ComputeTotal sums the five components without rounding.
func ComputeTotal(c Components) decimal.Decimal {
	return Sum(c.Tuition, c.Hostel, c.Library, c.Lab, c.Sports)
}

// ComponentInput is the unparsed form of Components received from clients.
type ComponentInput struct {
	Tuition RawAmount `json:"tuition"`
	Hostel  RawAmount `json:"hostel"`
	Library RawAmount `json:"library"`
	Lab     RawAmount `json:"lab"`
	Sports  RawAmount `json:"sports"`
}

type namedAmount struct {
	field string
	raw   RawAmount
	dst   *decimal.Decimal
}

func (in ComponentInput) named(out *Components) []namedAmount {
	return []namedAmount{
		{FieldTuition, in.Tuition, &out.Tuition},
		{FieldHostel, in.Hostel, &out.Hostel},
		{FieldLibrary, in.Library, &out.Library},
		{FieldLab, in.Lab, &out.Lab},
		{FieldSports, in.Sports, &out.Sports},
	}
}

// PreviewTotal computes a running total the way the entry form does: absent,
// empty and unparsable components count as zero. The returned field errors
// describe every component that would be rejected on save, so the caller can
// decide whether to block submission.
func PreviewTotal(in ComponentInput) (decimal.Decimal, FieldErrors) {
	var parsed Components
	for _, n := range in.named(&parsed) {
		if d, err := n.raw.Parse(); err == nil {
			*n.dst = d
		}
	}
	_, errs := parseComponents(in, false)
	return ComputeTotal(parsed), errs
}

// ParseComponents parses and validates every component. Absent values are
// zero except tuition when requireTuition is set, which must be positive.
func ParseComponents(in ComponentInput, requireTuition bool) (Components, error) {
	c, errs := parseComponents(in, requireTuition)
	if len(errs) > 0 {
		return Components{}, errs
	}
	return c, nil
}

func parseComponents(in ComponentInput, requireTuition bool) (Components, FieldErrors) {
	var out Components
	var errs FieldErrors
	for _, n := range in.named(&out) {
		label := componentLabels[n.field]
		if n.raw.IsBlank() {
			if n.field == FieldTuition && requireTuition {
				errs = append(errs, newError(KindInvalidComponent, n.field, label+" is required"))
			}
			*n.dst = decimal.Zero
			continue
		}
		d, err := n.raw.Parse()
		if errors.Is(err, errAmountLength) {
			errs = append(errs, newError(KindInvalidComponent, n.field, label+" must not exceed "+MaxComponent.StringFixed(CurrencyScale)))
			continue
		}
		if err != nil {
			errs = append(errs, newError(KindInvalidComponent, n.field, label+" must be a valid number"))
			continue
		}
		if e := checkComponent(n.field, d, requireTuition); e != nil {
			errs = append(errs, e)
			continue
		}
		*n.dst = d
	}
	return out, errs
}

// ValidateComponents checks already-typed components, as loaded from storage
// or built in code.
func ValidateComponents(c Components, requireTuition bool) error {
	var errs FieldErrors
	for _, n := range (ComponentInput{}).named(&c) {
		if e := checkComponent(n.field, *n.dst, requireTuition); e != nil {
			errs = append(errs, e)
		}
	}
	return errs.Err()
}

func checkComponent(field string, d decimal.Decimal, requireTuition bool) *ValidationError {
	label := componentLabels[field]
	switch {
	case d.IsNegative():
		return newError(KindInvalidComponent, field, label+" must be non-negative")
	case d.GreaterThan(MaxComponent):
		return newError(KindInvalidComponent, field, label+" must not exceed "+MaxComponent.StringFixed(CurrencyScale))
	case !HasCurrencyScale(d):
		return newError(KindInvalidComponent, field, fmt.Sprintf("%s must have at most %d decimal places", label, CurrencyScale))
	case field == FieldTuition && requireTuition && !d.IsPositive():
		return newError(KindInvalidComponent, field, label+" must be greater than zero")
	}
	return nil
}
