package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/sahilchouksey/fee-management/services/fees"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memUploader) Upload(_ context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memUploader) PresignedURL(key string, _ time.Duration) (string, error) {
	return "https://reports.example.com/" + key + "?signed=1", nil
}

func TestExportAssignments(t *testing.T) {
	db := newTestDB(t)
	today := testToday()

	student := createStudent(t, db, "export@example.com", fees.DegreeBachelor,
		fees.Enrollment{CourseName: "Computer Science", StartYear: 2024, EndYear: 2028})
	plan := createPlan(t, db, "Computer Science", "2024-2025")
	fee, err := NewAssignmentService(db, nil).Assign(t.Context(),
		AssignmentInput{StudentID: student.ID, FeePlanID: plan.ID, DueDate: dueIn(4)}, today)
	require.NoError(t, err)
	_, _, err = NewPaymentService(db, nil, nil).Record(t.Context(),
		PaymentInput{StudentFeeID: fee.ID, Amount: "850.50", Method: "NET_BANKING", ReferenceNo: "TXN-1"}, PaymentOptions{}, today)
	require.NoError(t, err)

	uploader := &memUploader{objects: map[string][]byte{}, types: map[string]string{}}
	svc := NewExportService(db, uploader, testZone)

	result, err := svc.ExportAssignments(t.Context(), AssignmentFilter{}, today)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Contains(t, result.Key, "reports/assignments/")
	assert.Contains(t, result.URL, "signed=1")
	assert.Equal(t, "text/csv", uploader.types[result.Key])

	records, err := csv.NewReader(bytes.NewReader(uploader.objects[result.Key])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	row := records[1]
	assert.Equal(t, "Test Student", row[2])
	assert.Equal(t, "export@example.com", row[3])
	assert.Equal(t, "1850.00", row[6])
	assert.Equal(t, "850.50", row[7])
	assert.Equal(t, "999.50", row[8])
	assert.Equal(t, "PARTIAL", row[9])
	assert.Equal(t, dueIn(4), row[10])
	assert.Equal(t, "false", row[11])

	data, rows, err := svc.PaymentsCSV(t.Context(), PaymentFilter{StudentID: student.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
	assert.Contains(t, string(data), "NET_BANKING")
	assert.Contains(t, string(data), "TXN-1")
}

func TestExportNotConfigured(t *testing.T) {
	svc := NewExportService(newTestDB(t), nil, testZone)
	assert.False(t, svc.IsConfigured())

	_, err := svc.ExportPayments(t.Context(), PaymentFilter{})
	assert.ErrorIs(t, err, ErrExportNotConfigured)

	data, rows, err := svc.AssignmentsCSV(t.Context(), AssignmentFilter{}, testToday())
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.Contains(t, string(data), "assignment_id")
}
