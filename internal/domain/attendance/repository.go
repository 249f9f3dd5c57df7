package attendance

import (
	"context"
	"time"
)

// AttendanceRepository defines data access methods for attendance records.
// All methods take tenantID so no lookup can cross a tenant boundary.
type AttendanceRepository interface {
	// GetByStudentAndDate returns nil without error when no record exists.
	GetByStudentAndDate(ctx context.Context, tenantID, studentID string, date time.Time) (*Record, error)

	// Create returns ErrDuplicateRecord when (tenant, student, date) is taken.
	Create(ctx context.Context, record Record) (Record, error)

	// MarkDeparted stamps the departure once. It reports false when the record
	// was already departed or has no entry.
	MarkDeparted(ctx context.Context, tenantID, recordID string, at time.Time) (bool, error)

	// ListByDate returns the day's records with student and section names.
	ListByDate(ctx context.Context, tenantID string, date time.Time) ([]Record, error)

	// CreateAbsentees inserts absent records for active students that have no
	// record on date and returns the inserted rows.
	CreateAbsentees(ctx context.Context, tenantID string, date time.Time, recordedBy string) ([]Record, error)
}
