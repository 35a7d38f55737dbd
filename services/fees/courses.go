package fees

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DegreeType is the kind of programme a student is enrolled in.
type DegreeType string

const (
	DegreeBachelor DegreeType = "BACHELOR"
	DegreeMaster   DegreeType = "MASTER"
	DegreeDiploma  DegreeType = "DIPLOMA"
	DegreeDual     DegreeType = "DUAL"
	DegreeOther    DegreeType = "OTHER"
)

// ParseDegreeType normalizes user input to a known degree type.
func ParseDegreeType(s string) (DegreeType, bool) {
	switch d := DegreeType(strings.ToUpper(strings.TrimSpace(s))); d {
	case DegreeBachelor, DegreeMaster, DegreeDiploma, DegreeDual, DegreeOther:
		return d, true
	}
	return "", false
}

var academicYearPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// AcademicYear is an inclusive "YYYY-YYYY" span.
type AcademicYear struct {
	Start int
	End   int
}

// ParseAcademicYear reads the strict "YYYY-YYYY" form. It does not check that
// the end follows the start; see ValidateAcademicYear for that.
func ParseAcademicYear(s string) (AcademicYear, error) {
	m := academicYearPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return AcademicYear{}, fmt.Errorf("academic year %q is not in YYYY-YYYY format", s)
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return AcademicYear{Start: start, End: end}, nil
}

// ValidateAcademicYear parses s and requires the second year to be greater
// than the first.
func ValidateAcademicYear(field, s string) (AcademicYear, error) {
	y, err := ParseAcademicYear(s)
	if err != nil {
		return AcademicYear{}, newError(KindInvalidAcademicYear, field, "Academic year must be in YYYY-YYYY format")
	}
	if y.End <= y.Start {
		return AcademicYear{}, newError(KindInvalidAcademicYear, field, "Academic year end must be after its start")
	}
	return y, nil
}

func (y AcademicYear) String() string {
	return fmt.Sprintf("%d-%d", y.Start, y.End)
}

// Enrollment is one course a student is enrolled in, with inclusive years.
type Enrollment struct {
	CourseName string `json:"course_name"`
	StartYear  int    `json:"start_year"`
	EndYear    int    `json:"end_year"`
	Primary    bool   `json:"primary"`
}

// Covers reports whether the academic year nests within the enrollment.
func (e Enrollment) Covers(y AcademicYear) bool {
	return y.Start >= e.StartYear && y.End <= e.EndYear
}

// Span renders the enrollment for diagnostics, e.g. "CS (2020-2024)".
func (e Enrollment) Span() string {
	return fmt.Sprintf("%s (%d-%d)", e.CourseName, e.StartYear, e.EndYear)
}

// CourseSource is a student's course data as stored: either a list of
// enrollments or the legacy single course and academic year pair.
type CourseSource struct {
	Enrollments        []Enrollment
	LegacyCourse       string
	LegacyAcademicYear string
}

// ExtractCourses returns the enrollments of a student. Records without
// enrollments fall back to the legacy course pair. An empty result means the
// student has no eligible course.
func ExtractCourses(src CourseSource) []Enrollment {
	if len(src.Enrollments) > 0 {
		out := make([]Enrollment, len(src.Enrollments))
		copy(out, src.Enrollments)
		return out
	}

	course := strings.TrimSpace(src.LegacyCourse)
	if course == "" {
		return []Enrollment{}
	}
	start, end, ok := splitYears(src.LegacyAcademicYear)
	if !ok {
		return []Enrollment{}
	}
	return []Enrollment{{CourseName: course, StartYear: start, EndYear: end, Primary: true}}
}

func splitYears(s string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// PrimaryCourse returns the enrollment flagged primary, else the first one.
func PrimaryCourse(courses []Enrollment) (Enrollment, bool) {
	if len(courses) == 0 {
		return Enrollment{}, false
	}
	for _, c := range courses {
		if c.Primary {
			return c, true
		}
	}
	return courses[0], true
}
