package student

import "github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"

type TransferSectionRequest struct {
	TenantID  string `json:"-" validate:"required,uuid"`
	StudentID string `json:"-" validate:"required,uuid"`
	SectionID string `json:"section_id" validate:"required,uuid"`
}

func (r TransferSectionRequest) Validate() error {
	return validator.Struct(r)
}

type TransferSectionResponse struct {
	StudentID       string `json:"student_id"`
	FullName        string `json:"full_name"`
	FromSectionID   string `json:"from_section_id"`
	FromSectionName string `json:"from_section_name"`
	ToSectionID     string `json:"to_section_id"`
	ToSectionName   string `json:"to_section_name"`
}
