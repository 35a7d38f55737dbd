package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type planForm struct {
	Course       string `json:"course" validate:"required,max=100"`
	AcademicYear string `json:"academic_year" validate:"required,academic_year"`
}

type paymentForm struct {
	Method string `json:"method" validate:"required,payment_method"`
}

func TestCustomTags(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		form    planForm
		invalid []string
	}{
		{"valid", planForm{Course: "CS", AcademicYear: "2023-2024"}, nil},
		{"reversed years", planForm{Course: "CS", AcademicYear: "2024-2023"}, []string{"academic_year"}},
		{"bad format", planForm{Course: "CS", AcademicYear: "23-24"}, []string{"academic_year"}},
		{"missing course", planForm{AcademicYear: "2023-2024"}, []string{"course"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.form)
			if tt.invalid == nil {
				assert.NoError(t, err)
				return
			}
			got := FormatValidationErrors(err)
			for _, field := range tt.invalid {
				assert.Contains(t, got, field)
			}
			assert.Len(t, got, len(tt.invalid))
		})
	}
}

func TestPaymentMethodTag(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateStruct(paymentForm{Method: "UPI"}))
	assert.NoError(t, v.ValidateStruct(paymentForm{Method: " upi "}))
	assert.NoError(t, v.ValidateStruct(paymentForm{Method: "net_banking"}))

	err := v.ValidateStruct(paymentForm{Method: "BITCOIN"})
	assert.Equal(t, "Payment method must be one of CASH, CARD, UPI, NET_BANKING, OTHER", FormatValidationErrors(err)["method"])
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "john.doe@example.com", NormalizeEmail("  John.Doe@Example.com\x00 "))
	assert.True(t, ValidateEmail("john.doe@example.com"))
	assert.False(t, ValidateEmail("john.doe"))
}
