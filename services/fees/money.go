package fees

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyScale is the number of fractional digits a stored amount may carry.
const CurrencyScale = 2

// maxAmountDigits caps the digits accepted in submitted text.
const maxAmountDigits = 24

var (
	// MaxComponent is the largest value a numeric(12,2) plan component holds.
	MaxComponent = decimal.New(999999999999, -CurrencyScale)
	// MaxAmount is the largest value a numeric(14,2) total, assigned amount
	// or payment holds.
	MaxAmount = decimal.New(99999999999999, -CurrencyScale)
)

var (
	errEmptyAmount  = errors.New("amount is empty")
	errAmountSyntax = errors.New("amount must be written as plain decimal digits")
	errAmountLength = errors.New("amount has too many digits")
)

// RawAmount is an amount as submitted by a client. It accepts a JSON number,
// a JSON string or null, and keeps the text for later parsing.
type RawAmount string

func (r *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawAmount(s)
		return nil
	}
	*r = RawAmount(data)
	return nil
}

// IsBlank reports whether no value was supplied.
func (r RawAmount) IsBlank() bool {
	return strings.TrimSpace(string(r)) == ""
}

// Parse converts the raw text to a decimal without checking its scale or
// range. Only an optional sign, digits and one decimal point are accepted;
// exponent forms are rejected.
func (r RawAmount) Parse() (decimal.Decimal, error) {
	s := strings.TrimSpace(string(r))
	if s == "" {
		return decimal.Zero, errEmptyAmount
	}
	if err := checkAmountText(s); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

func checkAmountText(s string) error {
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	digits, points := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			points++
		default:
			return errAmountSyntax
		}
	}
	if digits == 0 || points > 1 {
		return errAmountSyntax
	}
	if digits > maxAmountDigits {
		return errAmountLength
	}
	return nil
}

// HasCurrencyScale reports whether d is representable in whole cents.
func HasCurrencyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(CurrencyScale))
}

// Sum adds amounts exactly. The order of the arguments does not matter.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
