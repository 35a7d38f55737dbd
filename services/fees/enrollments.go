package fees

import (
	"fmt"
	"strings"
)

const (
	MinEnrollmentYear   = 1900
	MaxEnrollmentYear   = 3000
	MaxCourseNameLength = 100
)

// NormalizeEnrollments applies the enrollment rules for a student of the
// given degree and returns a cleaned copy with exactly one primary course.
// When several enrollments are flagged primary the last one wins; when none
// is, the first becomes primary.
func NormalizeEnrollments(degree DegreeType, durationYears *int, in []Enrollment) ([]Enrollment, error) {
	var errs FieldErrors

	if _, ok := ParseDegreeType(string(degree)); !ok {
		errs = append(errs, newError(KindInvalidEnrollment, "degree_type", "Degree type is required"))
	}
	if durationYears != nil && *durationYears <= 0 {
		errs = append(errs, newError(KindInvalidEnrollment, "degree_duration_years", "Degree duration must be greater than zero"))
	}
	if len(in) == 0 {
		errs = append(errs, newError(KindInvalidEnrollment, "courses", "At least one course is required"))
		return nil, errs
	}
	if degree != DegreeDual && len(in) > 1 {
		errs = append(errs, newError(KindInvalidEnrollment, "courses", "Additional courses are allowed only for Dual Degree students"))
	}

	out := make([]Enrollment, len(in))
	primary := -1
	for i, c := range in {
		field := fmt.Sprintf("courses[%d]", i)
		c.CourseName = strings.TrimSpace(c.CourseName)
		switch {
		case c.CourseName == "":
			errs = append(errs, newError(KindInvalidEnrollment, field+".course_name", "Course name is required"))
		case len(c.CourseName) > MaxCourseNameLength:
			errs = append(errs, newError(KindInvalidEnrollment, field+".course_name", "Course name must be at most 100 characters"))
		}
		if !yearInRange(c.StartYear) || !yearInRange(c.EndYear) {
			errs = append(errs, newError(KindInvalidEnrollment, field, fmt.Sprintf("Course years must be between %d and %d", MinEnrollmentYear, MaxEnrollmentYear)))
		} else if c.EndYear <= c.StartYear {
			errs = append(errs, newError(KindInvalidEnrollment, field+".end_year", "End year must be greater than start year"))
		}
		if c.Primary {
			primary = i
		}
		out[i] = c
	}
	if primary < 0 {
		primary = 0
	}
	for i := range out {
		out[i].Primary = i == primary
	}

	if durationYears != nil && *durationYears > 0 {
		if span := courseSpan(out); span > *durationYears {
			errs = append(errs, newError(KindInvalidEnrollment, "courses",
				fmt.Sprintf("Course span exceeds degree duration (%d years > %d years)", span, *durationYears)))
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func yearInRange(y int) bool {
	return y >= MinEnrollmentYear && y <= MaxEnrollmentYear
}

func courseSpan(courses []Enrollment) int {
	minStart, maxEnd := courses[0].StartYear, courses[0].EndYear
	for _, c := range courses[1:] {
		if c.StartYear < minStart {
			minStart = c.StartYear
		}
		if c.EndYear > maxEnd {
			maxEnd = c.EndYear
		}
	}
	return maxEnd - minStart
}
