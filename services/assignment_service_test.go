package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/fee-management/model"
	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvents struct {
	assigned []uint
	payments []uint
}

func (r *recordedEvents) FeeAssigned(_ context.Context, _ *model.Student, fee *model.StudentFee) {
	r.assigned = append(r.assigned, fee.ID)
}

func (r *recordedEvents) PaymentRecorded(_ context.Context, _ *model.Student, _ *model.StudentFee, payment *model.Payment) {
	r.payments = append(r.payments, payment.ID)
}

func dueIn(days int) string {
	return testToday().AddDate(0, 0, days).Format(fees.DateLayout)
}

func TestAssignCourseYearSpan(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil)
	today := testToday()

	short := createStudent(t, db, "short@example.com", fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Computer Science", StartYear: 2020, EndYear: 2021})
	long := createStudent(t, db, "long@example.com", fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Computer Science", StartYear: 2021, EndYear: 2025})
	plan := createPlan(t, db, "Computer Science", "2022-2023")

	_, err := svc.Assign(t.Context(), AssignmentInput{StudentID: short.ID, FeePlanID: plan.ID, DueDate: dueIn(10)}, today)
	require.Error(t, err)
	assert.True(t, fees.IsKind(err, fees.KindCourseYearMismatch))
	assert.Contains(t, err.Error(), "2020-2021")

	fee, err := svc.Assign(t.Context(), AssignmentInput{StudentID: long.ID, FeePlanID: plan.ID, DueDate: dueIn(10)}, today)
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", fee.Course)
	assert.Equal(t, "2022-2023", fee.AcademicYear)
	assert.True(t, dec("1850").Equal(fee.AmountAssigned))
	assert.True(t, fee.AmountPaid.IsZero())
	assert.Equal(t, fees.StatusPending, fee.Status)
	assert.Equal(t, 1, fee.Version)
	assert.True(t, dec("500").Equal(fee.ComponentSnapshot.Data().Hostel))
}

func TestAssignDueDate(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil)
	today := testToday()

	student := createStudent(t, db, "due@example.com", fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Physics", StartYear: 2023, EndYear: 2027})
	plan := createPlan(t, db, "Physics", "2024-2025")

	_, err := svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(-1)}, today)
	require.Error(t, err)
	assert.True(t, fees.IsKind(err, fees.KindPastDueDate))

	_, err = svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: "15/06/2024"}, today)
	assert.True(t, fees.IsKind(err, fees.KindInvalidDate))

	fee, err := svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(0)}, today)
	require.NoError(t, err)

	stored, err := svc.Get(t.Context(), fee.ID)
	require.NoError(t, err)
	assert.Equal(t, dueIn(0), stored.DueDate.In(testZone).Format(fees.DateLayout))
	assert.Equal(t, "Physics", stored.FeePlan.Course)
}

func TestAssignDualDegree(t *testing.T) {
	db := newTestDB(t)
	events := &recordedEvents{}
	svc := NewAssignmentService(db, events)

	student := createStudent(t, db, "dual@example.com", fees.DegreeDual,
		fees.Enrollment{CourseName: "Mathematics", StartYear: 2020, EndYear: 2023},
		fees.Enrollment{CourseName: "Economics", StartYear: 2023, EndYear: 2026})
	plan := createPlan(t, db, "Economics", "2023-2024")

	check, err := svc.Check(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(30)}, testToday())
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.True(t, check.YearChecked)
	assert.Equal(t, "Economics", check.MatchedCourse)
	assert.Empty(t, events.assigned)

	fee, err := svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(30)}, testToday())
	require.NoError(t, err)
	assert.Equal(t, "Economics", fee.Course)
	assert.Equal(t, []uint{fee.ID}, events.assigned)
}

func TestAssignRejections(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil)
	today := testToday()

	student := createStudent(t, db, "rej@example.com", fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Chemistry", StartYear: 2022, EndYear: 2026})
	plan := createPlan(t, db, "Chemistry", "2024-2025")

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Assign(t.Context(), AssignmentInput{}, today)
		require.Error(t, err)
		byField := fees.Errors(err).ByField()
		assert.Contains(t, byField, "student_id")
		assert.Contains(t, byField, "fee_plan_id")
		assert.Contains(t, byField, "due_date")
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := svc.Assign(t.Context(), AssignmentInput{StudentID: 999, FeePlanID: plan.ID, DueDate: dueIn(1)}, today)
		assert.ErrorIs(t, err, ErrStudentNotFound)
	})

	t.Run("unknown plan", func(t *testing.T) {
		_, err := svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: 999, DueDate: dueIn(1)}, today)
		assert.ErrorIs(t, err, ErrFeePlanNotFound)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(1)}, today)
		require.NoError(t, err)
		_, err = svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(2)}, today)
		assert.ErrorIs(t, err, ErrDuplicateAssignment)
		assert.Equal(t, "Fee plan already assigned to this student for the same academic year", err.Error())
	})
}

func TestAssignLegacyCourseFields(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil)

	legacy := &model.Student{FirstName: "Old", LastName: "Record", Email: "legacy@example.com",
		DegreeType: fees.DegreeBachelor, Course: "History", AcademicYear: "2021-2025"}
	require.NoError(t, db.Create(legacy).Error)
	empty := &model.Student{FirstName: "No", LastName: "Course", Email: "empty@example.com", DegreeType: fees.DegreeBachelor}
	require.NoError(t, db.Create(empty).Error)
	plan := createPlan(t, db, "History", "2023-2024")

	fee, err := svc.Assign(t.Context(), AssignmentInput{StudentID: legacy.ID, FeePlanID: plan.ID, DueDate: dueIn(5)}, testToday())
	require.NoError(t, err)
	assert.Equal(t, "History", fee.Course)

	_, err = svc.Assign(t.Context(), AssignmentInput{StudentID: empty.ID, FeePlanID: plan.ID, DueDate: dueIn(5)}, testToday())
	assert.True(t, fees.IsKind(err, fees.KindNoEligibleCourse))
}

func TestUpdateDueDateAndDelete(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil)
	today := testToday()

	student := createStudent(t, db, "upd@example.com", fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Biology", StartYear: 2023, EndYear: 2027})
	plan := createPlan(t, db, "Biology", "2024-2025")
	fee, err := svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(3)}, today)
	require.NoError(t, err)

	_, err = svc.UpdateDueDate(t.Context(), fee.ID, dueIn(-2), today)
	assert.True(t, fees.IsKind(err, fees.KindPastDueDate))

	_, err = svc.UpdateDueDate(t.Context(), fee.ID, "", today)
	assert.True(t, fees.IsKind(err, fees.KindMissingField))

	updated, err := svc.UpdateDueDate(t.Context(), fee.ID, dueIn(20), today)
	require.NoError(t, err)
	assert.Equal(t, dueIn(20), updated.DueDate.In(testZone).Format(fees.DateLayout))

	_, err = svc.UpdateDueDate(t.Context(), 999, dueIn(20), today)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	require.NoError(t, db.Create(&model.Payment{
		StudentFeeID: fee.ID, StudentID: student.ID, Amount: dec("100"),
		Method: fees.MethodCash, PaidAt: time.Now().UTC(),
	}).Error)
	assert.ErrorIs(t, svc.Delete(t.Context(), fee.ID), ErrAssignmentHasPayments)

	other := createPlan(t, db, "Biology", "2025-2026")
	unpaid, err := svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: other.ID, DueDate: dueIn(3)}, today)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(t.Context(), unpaid.ID))
	_, err = svc.Get(t.Context(), unpaid.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestListAndSummary(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssignmentService(db, nil)
	today := testToday()

	student := createStudent(t, db, "sum@example.com", fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Design", StartYear: 2022, EndYear: 2026})
	first := createPlan(t, db, "Design", "2023-2024")
	second := createPlan(t, db, "Design", "2024-2025")

	_, err := svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: first.ID, DueDate: dueIn(10)}, today)
	require.NoError(t, err)
	_, err = svc.Assign(t.Context(), AssignmentInput{StudentID: student.ID, FeePlanID: second.ID, DueDate: dueIn(2)}, today)
	require.NoError(t, err)

	list, total, err := svc.List(t.Context(), AssignmentFilter{StudentID: student.ID}, today)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "2024-2025", list[0].AcademicYear)

	list, total, err = svc.List(t.Context(), AssignmentFilter{Status: "paid"}, today)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	summary, items, err := svc.StudentSummary(t.Context(), student.ID, today)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.True(t, dec("3700").Equal(summary.TotalAssigned))
	assert.True(t, dec("3700").Equal(summary.Balance))
	assert.Equal(t, 2, summary.PendingCount)
	require.NotNil(t, summary.NextDueDate)
	assert.Equal(t, dueIn(2), summary.NextDueDate.Format(fees.DateLayout))
}
