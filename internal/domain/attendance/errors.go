package attendance

import (
	"errors"

	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/qrcode"
)

// Attendance domain errors
var (
	// Invalid input
	ErrInvalidPayload        = qrcode.ErrInvalidPayload
	ErrInvalidSignature      = qrcode.ErrInvalidSignature
	ErrTenantMismatch        = qrcode.ErrTenantMismatch
	ErrInvalidClassification = errors.New("classification must be one of on_time, late, absent, excused, sick")
	ErrInvalidDate           = errors.New("invalid date format, use YYYY-MM-DD")
	ErrFutureDateNotAllowed  = errors.New("attendance cannot be recorded for a future date")

	// Invalid state
	ErrNoSchedule = errors.New("no schedule configured for this weekday")
	ErrNotEntered = errors.New("no entry has been recorded for this student today")

	// Conflict reasons
	ErrAlreadyRecorded = errors.New("attendance has already been recorded for today")
	ErrAlreadyDeparted = errors.New("departure has already been recorded for today")

	// Persistence
	ErrDuplicateRecord = errors.New("attendance record already exists for this student and day")
	ErrRecordNotFound  = errors.New("attendance record not found")
)

// ConflictError is returned when a duplicate entry or departure is rejected.
// It carries the record that already exists so callers can render it.
type ConflictError struct {
	Reason   error
	Existing Summary
}

func (e *ConflictError) Error() string {
	return e.Reason.Error()
}

func (e *ConflictError) Unwrap() error {
	return e.Reason
}
