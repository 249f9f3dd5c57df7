package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/auth"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/response"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

type AttendanceHandler interface {
	Scan(w http.ResponseWriter, r *http.Request)
	Manual(w http.ResponseWriter, r *http.Request)
	Departure(w http.ResponseWriter, r *http.Request)
	Daily(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// callerFromRequest returns the authenticated caller. Routes behind
// AuthRequired always have one.
func callerFromRequest(w http.ResponseWriter, r *http.Request) (auth.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.HandleError(w, auth.ErrInvalidToken)
		return auth.Claims{}, false
	}
	return claims, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// Scan implements AttendanceHandler.
func (h *attendanceHandlerImpl) Scan(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.ScanEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TenantID = caller.TenantID
	req.OperatorID = caller.UserID

	summary, err := h.attendanceService.RecordScanEntry(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Entry recorded", summary)
}

// Manual implements AttendanceHandler.
func (h *attendanceHandlerImpl) Manual(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.ManualEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TenantID = caller.TenantID
	req.OperatorID = caller.UserID

	summary, err := h.attendanceService.RecordManualEntry(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance recorded", summary)
}

// Departure implements AttendanceHandler.
func (h *attendanceHandlerImpl) Departure(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req attendance.DepartureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TenantID = caller.TenantID
	req.OperatorID = caller.UserID

	summary, err := h.attendanceService.RecordDeparture(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Departure recorded", summary)
}

// Daily implements AttendanceHandler.
func (h *attendanceHandlerImpl) Daily(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	filter := attendance.DailyFilter{TenantID: caller.TenantID}
	if date := r.URL.Query().Get("date"); date != "" {
		filter.Date = &date
	}

	result, err := h.attendanceService.GetDaily(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
