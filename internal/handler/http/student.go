package http

import (
	"net/http"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/student"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type StudentHandler interface {
	TransferSection(w http.ResponseWriter, r *http.Request)
}

type studentHandlerImpl struct {
	studentService student.StudentService
}

func NewStudentHandler(studentService student.StudentService) StudentHandler {
	return &studentHandlerImpl{
		studentService: studentService,
	}
}

// TransferSection implements StudentHandler.
func (h *studentHandlerImpl) TransferSection(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req student.TransferSectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TenantID = caller.TenantID
	req.StudentID = chi.URLParam(r, "id")

	result, err := h.studentService.TransferSection(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Student transferred", result)
}
