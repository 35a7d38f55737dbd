package fees

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kolkata = time.FixedZone("IST", 5*3600+1800)

func day(loc *time.Location, y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return &t
}

func singleCourse(name string, start, end int) StudentRef {
	return StudentRef{ID: 1, Courses: CourseSource{Enrollments: []Enrollment{
		{CourseName: name, StartYear: start, EndYear: end, Primary: true},
	}}}
}

func TestExtractCourses(t *testing.T) {
	t.Run("enrollments win over legacy fields", func(t *testing.T) {
		src := CourseSource{
			Enrollments:        []Enrollment{{CourseName: "CS", StartYear: 2020, EndYear: 2024, Primary: true}},
			LegacyCourse:       "Old",
			LegacyAcademicYear: "2010-2014",
		}
		assert.Equal(t, src.Enrollments, ExtractCourses(src))
	})

	t.Run("legacy pair is synthesized", func(t *testing.T) {
		got := ExtractCourses(CourseSource{LegacyCourse: "Computer Science", LegacyAcademicYear: "2024-2028"})
		assert.Equal(t, []Enrollment{{CourseName: "Computer Science", StartYear: 2024, EndYear: 2028, Primary: true}}, got)
	})

	t.Run("nothing usable yields empty", func(t *testing.T) {
		assert.Empty(t, ExtractCourses(CourseSource{}))
		assert.Empty(t, ExtractCourses(CourseSource{LegacyCourse: "CS", LegacyAcademicYear: "soon"}))
		assert.Empty(t, ExtractCourses(CourseSource{LegacyAcademicYear: "2020-2024"}))
	})
}

func TestValidateAssignmentYearNesting(t *testing.T) {
	today := time.Date(2022, 6, 1, 10, 0, 0, 0, time.UTC)
	plan := PlanRef{ID: 7, Course: "CS", AcademicYear: "2022-2023"}

	_, err := ValidateAssignment(singleCourse("CS", 2020, 2021), plan, day(time.UTC, 2022, 7, 1), today)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCourseYearMismatch))
	assert.Contains(t, err.Error(), "2022-2023")
	assert.Contains(t, err.Error(), "CS (2020-2021)")

	m, err := ValidateAssignment(singleCourse("CS", 2021, 2025), plan, day(time.UTC, 2022, 7, 1), today)
	require.NoError(t, err)
	assert.True(t, m.YearChecked)
	assert.Equal(t, "CS", m.Course.CourseName)
}

func TestValidateAssignmentDueDate(t *testing.T) {
	today := time.Date(2024, 3, 15, 0, 30, 0, 0, kolkata)
	student := singleCourse("CS", 2020, 2028)
	plan := PlanRef{ID: 3, AcademicYear: "2023-2024"}

	_, err := ValidateAssignment(student, plan, day(kolkata, 2024, 3, 14), today)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindPastDueDate))

	m, err := ValidateAssignment(student, plan, day(kolkata, 2024, 3, 15), today)
	require.NoError(t, err)
	assert.Equal(t, *day(kolkata, 2024, 3, 15), m.DueDate)
}

func TestValidateAssignmentUsesLocalMidnight(t *testing.T) {
	// 00:30 on the 15th in IST is still the 14th in UTC. A due date of the
	// 15th in IST must be accepted even though UTC midnight says otherwise.
	today := time.Date(2024, 3, 15, 0, 30, 0, 0, kolkata)
	due := time.Date(2024, 3, 14, 19, 0, 0, 0, time.UTC) // 00:30 on the 15th in IST

	_, err := ValidateAssignment(singleCourse("CS", 2020, 2028), PlanRef{ID: 1, AcademicYear: "2023-2024"}, &due, today)
	assert.NoError(t, err)
}

func TestValidateAssignmentMissingFields(t *testing.T) {
	_, err := ValidateAssignment(StudentRef{}, PlanRef{}, nil, time.Now())
	require.Error(t, err)

	errs := Errors(err)
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, KindMissingField, e.Kind)
	}
	assert.ElementsMatch(t, []string{"student_id", "fee_plan_id", "due_date"},
		[]string{errs[0].Field, errs[1].Field, errs[2].Field})
}

func TestValidateAssignmentNoEligibleCourse(t *testing.T) {
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := ValidateAssignment(StudentRef{ID: 4}, PlanRef{ID: 1, AcademicYear: "2023-2024"}, day(time.UTC, 2024, 2, 1), today)
	require.Error(t, err)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindNoEligibleCourse, kind)
}

func TestValidateAssignmentUnparsableYearIsPermissive(t *testing.T) {
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	student := StudentRef{ID: 9, Courses: CourseSource{Enrollments: []Enrollment{
		{CourseName: "BBA", StartYear: 2010, EndYear: 2013},
		{CourseName: "MBA", StartYear: 2014, EndYear: 2016, Primary: true},
	}}}

	m, err := ValidateAssignment(student, PlanRef{ID: 1, AcademicYear: "next year"}, day(time.UTC, 2024, 1, 1), today)
	require.NoError(t, err)
	assert.False(t, m.YearChecked)
	assert.Equal(t, "MBA", m.Course.CourseName)
}

func TestValidateAssignmentDualDegree(t *testing.T) {
	today := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	student := StudentRef{ID: 2, Courses: CourseSource{Enrollments: []Enrollment{
		{CourseName: "CS", StartYear: 2020, EndYear: 2024, Primary: true},
		{CourseName: "MBA", StartYear: 2023, EndYear: 2025},
	}}}

	m, err := ValidateAssignment(student, PlanRef{ID: 5, Course: "MBA", AcademicYear: "2023-2024"}, day(time.UTC, 2023, 7, 1), today)
	require.NoError(t, err)
	assert.Equal(t, "MBA", m.Course.CourseName)

	// Outside CS entirely, inside MBA only.
	m, err = ValidateAssignment(student, PlanRef{ID: 6, Course: "MBA", AcademicYear: "2024-2025"}, day(time.UTC, 2023, 7, 1), today)
	require.NoError(t, err)
	assert.Equal(t, "MBA", m.Course.CourseName)

	_, err = ValidateAssignment(student, PlanRef{ID: 8, AcademicYear: "2019-2020"}, day(time.UTC, 2023, 7, 1), today)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CS (2020-2024), MBA (2023-2025)")
}

func TestValidateAssignmentPrefersNamedCourse(t *testing.T) {
	today := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	student := StudentRef{ID: 2, Courses: CourseSource{Enrollments: []Enrollment{
		{CourseName: "CS", StartYear: 2020, EndYear: 2024, Primary: true},
		{CourseName: "MBA", StartYear: 2023, EndYear: 2025},
	}}}

	m, err := ValidateAssignment(student, PlanRef{ID: 5, Course: "mba", AcademicYear: "2023-2024"}, day(time.UTC, 2023, 7, 1), today)
	require.NoError(t, err)
	assert.Equal(t, "MBA", m.Course.CourseName)

	m, err = ValidateAssignment(student, PlanRef{ID: 5, Course: "Physics", AcademicYear: "2023-2024"}, day(time.UTC, 2023, 7, 1), today)
	require.NoError(t, err)
	assert.Equal(t, "CS", m.Course.CourseName)
}

func TestParseAcademicYear(t *testing.T) {
	y, err := ParseAcademicYear("2023-2024")
	require.NoError(t, err)
	assert.Equal(t, AcademicYear{Start: 2023, End: 2024}, y)
	assert.Equal(t, "2023-2024", y.String())

	for _, bad := range []string{"", "2023", "23-24", "2023-24", "2023/2024", "abcd-efgh"} {
		_, err := ParseAcademicYear(bad)
		assert.Error(t, err, bad)
	}

	_, err = ValidateAcademicYear("academic_year", "2024-2023")
	assert.True(t, IsKind(err, KindInvalidAcademicYear))
	_, err = ValidateAcademicYear("academic_year", "2024-2024")
	assert.True(t, IsKind(err, KindInvalidAcademicYear))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("due_date", "2024-07-01", kolkata)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, kolkata), *got)

	got, err = ParseDate("due_date", "2024-07-01T09:00:00Z", kolkata)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)))

	got, err = ParseDate("due_date", "  ", kolkata)
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDate("due_date", "01/07/2024", kolkata)
	assert.True(t, IsKind(err, KindInvalidDate))
}
