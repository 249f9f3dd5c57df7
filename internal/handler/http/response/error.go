package response

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/auth"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/student"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/tenant"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/alert"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
)

var (
	reporterMu sync.RWMutex
	reporter   alert.Reporter = alert.LogReporter{}
)

// SetReporter sets where unexpected errors are reported.
func SetReporter(r alert.Reporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
}

func report(err error) {
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	r.Error(context.Background(), err, nil)
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		BadRequest(w, "Validation failed", validationErrs.ToMap())
		return
	}

	// Duplicate entry or departure carries the record that already exists
	var conflict *attendance.ConflictError
	if errors.As(err, &conflict) {
		ConflictWithData(w, conflict.Error(), conflict.Existing)
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTenantRequired):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrOperatorAccess),
		errors.Is(err, auth.ErrAdminAccess):
		Forbidden(w, err.Error())

	// Invalid input
	case errors.Is(err, attendance.ErrInvalidPayload),
		errors.Is(err, attendance.ErrInvalidSignature),
		errors.Is(err, attendance.ErrInvalidClassification),
		errors.Is(err, attendance.ErrInvalidDate),
		errors.Is(err, attendance.ErrFutureDateNotAllowed),
		errors.Is(err, student.ErrSameSection):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, attendance.ErrTenantMismatch):
		TenantMismatch(w, err.Error())

	// Not found
	case errors.Is(err, student.ErrStudentNotFound),
		errors.Is(err, student.ErrSectionNotFound),
		errors.Is(err, tenant.ErrTenantNotFound),
		errors.Is(err, attendance.ErrRecordNotFound),
		errors.Is(err, notification.ErrOutboxNotFound):
		NotFound(w, err.Error())

	case errors.Is(err, student.ErrSectionChanged):
		Conflict(w, err.Error())

	// Invalid state
	case errors.Is(err, attendance.ErrNoSchedule),
		errors.Is(err, attendance.ErrNotEntered),
		errors.Is(err, student.ErrStudentInactive):
		InvalidState(w, err.Error())

	// Default
	default:
		report(err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
