package fees

import (
	"fmt"
	"strings"
	"time"
)

// StudentRef is the part of a student record the validator looks at.
type StudentRef struct {
	ID      uint
	Courses CourseSource
}

// PlanRef is the part of a fee plan record the validator looks at.
type PlanRef struct {
	ID           uint
	Course       string
	AcademicYear string
}

// Match is the outcome of a successful validation.
type Match struct {
	// Course is the first enrollment covering the plan year, except that an
	// enrollment named like the plan's course wins over earlier ones. It is
	// stamped on the assignment for display only.
	Course Enrollment
	// YearChecked is false when the plan's academic year could not be parsed
	// and the span check was skipped.
	YearChecked bool
	DueDate     time.Time
}

// StartOfDay truncates t to midnight in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CheckDueDate rejects a due date before today. Both values are compared as
// calendar days in today's location.
func CheckDueDate(dueDate, today time.Time) error {
	if StartOfDay(dueDate.In(today.Location())).Before(StartOfDay(today)) {
		return newError(KindPastDueDate, "due_date", "Due date cannot be in the past")
	}
	return nil
}

// ValidateAssignment decides whether the student may be assigned the plan
// with the given due date. today is the caller's notion of the current day;
// its location defines where midnight falls.
func ValidateAssignment(student StudentRef, plan PlanRef, dueDate *time.Time, today time.Time) (Match, error) {
	var missing FieldErrors
	if student.ID == 0 {
		missing = append(missing, newError(KindMissingField, "student_id", "Student is required"))
	}
	if plan.ID == 0 {
		missing = append(missing, newError(KindMissingField, "fee_plan_id", "Fee plan is required"))
	}
	if dueDate == nil || dueDate.IsZero() {
		missing = append(missing, newError(KindMissingField, "due_date", "Due date is required"))
	}
	if len(missing) > 0 {
		return Match{}, missing
	}

	if err := CheckDueDate(*dueDate, today); err != nil {
		return Match{}, err
	}

	courses := ExtractCourses(student.Courses)
	year, yearErr := ParseAcademicYear(plan.AcademicYear)

	if len(courses) == 0 {
		return Match{}, newError(KindNoEligibleCourse, "student_id", "Student has no course enrollment eligible for fee assignment")
	}

	match := Match{DueDate: StartOfDay(dueDate.In(today.Location()))}
	if yearErr != nil {
		match.Course, _ = PrimaryCourse(courses)
		return match, nil
	}

	matched, ok := matchCourse(courses, plan.Course, year)
	if !ok {
		spans := make([]string, len(courses))
		for i, c := range courses {
			spans[i] = c.Span()
		}
		return Match{}, newError(KindCourseYearMismatch, "fee_plan_id", fmt.Sprintf(
			"Fee plan academic year %s is outside the student's course span(s): %s",
			year, strings.Join(spans, ", ")))
	}
	match.Course = matched
	match.YearChecked = true
	return match, nil
}

// matchCourse picks the enrollment covering year, preferring one whose name
// equals the plan's course.
func matchCourse(courses []Enrollment, planCourse string, year AcademicYear) (Enrollment, bool) {
	var first *Enrollment
	for i := range courses {
		c := courses[i]
		if !c.Covers(year) {
			continue
		}
		if planCourse != "" && strings.EqualFold(strings.TrimSpace(c.CourseName), strings.TrimSpace(planCourse)) {
			return c, true
		}
		if first == nil {
			first = &courses[i]
		}
	}
	if first == nil {
		return Enrollment{}, false
	}
	return *first, true
}
