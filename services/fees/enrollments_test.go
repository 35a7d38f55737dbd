package fees

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestNormalizeEnrollments(t *testing.T) {
	t.Run("single course becomes primary and is trimmed", func(t *testing.T) {
		out, err := NormalizeEnrollments(DegreeBachelor, intPtr(4), []Enrollment{
			{CourseName: "  Computer Science ", StartYear: 2024, EndYear: 2028},
		})
		require.NoError(t, err)
		assert.Equal(t, []Enrollment{{CourseName: "Computer Science", StartYear: 2024, EndYear: 2028, Primary: true}}, out)
	})

	t.Run("dual degree keeps last flagged primary", func(t *testing.T) {
		out, err := NormalizeEnrollments(DegreeDual, nil, []Enrollment{
			{CourseName: "CS", StartYear: 2020, EndYear: 2024, Primary: true},
			{CourseName: "MBA", StartYear: 2023, EndYear: 2025, Primary: true},
		})
		require.NoError(t, err)
		assert.False(t, out[0].Primary)
		assert.True(t, out[1].Primary)
	})

	tests := []struct {
		name     string
		degree   DegreeType
		duration *int
		courses  []Enrollment
		field    string
		message  string
	}{
		{
			name:    "no courses",
			degree:  DegreeMaster,
			field:   "courses",
			message: "At least one course is required",
		},
		{
			name:   "second course without dual degree",
			degree: DegreeBachelor,
			courses: []Enrollment{
				{CourseName: "CS", StartYear: 2020, EndYear: 2024},
				{CourseName: "MBA", StartYear: 2023, EndYear: 2025},
			},
			field:   "courses",
			message: "Additional courses are allowed only for Dual Degree students",
		},
		{
			name:    "end before start",
			degree:  DegreeDiploma,
			courses: []Enrollment{{CourseName: "Design", StartYear: 2024, EndYear: 2024}},
			field:   "courses[0].end_year",
			message: "End year must be greater than start year",
		},
		{
			name:    "blank course name",
			degree:  DegreeOther,
			courses: []Enrollment{{CourseName: "  ", StartYear: 2020, EndYear: 2022}},
			field:   "courses[0].course_name",
			message: "Course name is required",
		},
		{
			name:     "span exceeds duration",
			degree:   DegreeDual,
			duration: intPtr(4),
			courses: []Enrollment{
				{CourseName: "CS", StartYear: 2020, EndYear: 2024},
				{CourseName: "MBA", StartYear: 2023, EndYear: 2026},
			},
			field:   "courses",
			message: "Course span exceeds degree duration (6 years > 4 years)",
		},
		{
			name:     "non-positive duration",
			degree:   DegreeBachelor,
			duration: intPtr(0),
			courses:  []Enrollment{{CourseName: "CS", StartYear: 2020, EndYear: 2024}},
			field:    "degree_duration_years",
			message:  "Degree duration must be greater than zero",
		},
		{
			name:    "unknown degree",
			degree:  DegreeType("PHD"),
			courses: []Enrollment{{CourseName: "CS", StartYear: 2020, EndYear: 2024}},
			field:   "degree_type",
			message: "Degree type is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeEnrollments(tt.degree, tt.duration, tt.courses)
			require.Error(t, err)
			assert.Equal(t, tt.message, Errors(err).ByField()[tt.field])
		})
	}
}

func TestSummarize(t *testing.T) {
	today := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	items := []SummaryItem{
		{Ledger: LedgerOf(dec("1850"), dec("1850")), DueDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{Ledger: LedgerOf(dec("1000"), dec("400")), DueDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{Ledger: LedgerOf(dec("500"), dec("0")), DueDate: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)},
		{Ledger: LedgerOf(dec("650"), dec("0")), DueDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}

	s := Summarize(items, today)
	assert.True(t, s.TotalAssigned.Equal(dec("4000")))
	assert.True(t, s.TotalPaid.Equal(dec("2250")))
	assert.True(t, s.Balance.Equal(dec("1750")))
	assert.Equal(t, 56.25, s.PaidPercentage)
	assert.Equal(t, 1, s.PaidCount)
	assert.Equal(t, 1, s.PartialCount)
	assert.Equal(t, 2, s.PendingCount)
	assert.Equal(t, 1, s.OverdueCount)
	require.NotNil(t, s.NextDueDate)
	assert.Equal(t, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), *s.NextDueDate)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, time.Now())
	assert.True(t, s.TotalAssigned.IsZero())
	assert.Zero(t, s.PaidPercentage)
	assert.Nil(t, s.NextDueDate)
}
