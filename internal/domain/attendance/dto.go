package attendance

import (
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ========================================
// INGESTION REQUESTS
// ========================================

type ScanEntryRequest struct {
	TenantID   string `json:"-" validate:"required"`
	OperatorID string `json:"-"`
	Payload    string `json:"payload" validate:"required,max=2048"`
}

func (r *ScanEntryRequest) Validate() error {
	return validator.Struct(r)
}

type DepartureRequest struct {
	TenantID   string `json:"-" validate:"required"`
	OperatorID string `json:"-"`
	Payload    string `json:"payload" validate:"required,max=2048"`
}

func (r *DepartureRequest) Validate() error {
	return validator.Struct(r)
}

type ManualEntryRequest struct {
	TenantID       string         `json:"-" validate:"required"`
	OperatorID     string         `json:"-"`
	StudentID      string         `json:"student_id" validate:"required,uuid"`
	Classification Classification `json:"classification" validate:"required,oneof=on_time late absent excused sick"`
	Note           *string        `json:"note,omitempty" validate:"omitempty,max=500"`
	Date           *string        `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (r *ManualEntryRequest) Validate() error {
	return validator.Struct(r)
}

// ========================================
// QUERIES
// ========================================

type DailyFilter struct {
	TenantID string  `json:"-" validate:"required"`
	Date     *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (f *DailyFilter) Validate() error {
	return validator.Struct(f)
}

// ========================================
// RESPONSES
// ========================================

// Summary is what every ingestion call returns, on success and on conflict.
type Summary struct {
	RecordID        string         `json:"record_id"`
	StudentID       string         `json:"student_id"`
	StudentName     string         `json:"student_name"`
	SectionName     string         `json:"section_name"`
	Date            string         `json:"date"`
	Classification  Classification `json:"classification"`
	Label           string         `json:"label"`
	EntryTime       *string        `json:"entry_time"`
	DepartureTime   *string        `json:"departure_time"`
	InputMethod     InputMethod    `json:"input_method"`
	Note            *string        `json:"note,omitempty"`
	AlreadyRecorded bool           `json:"already_recorded"`
}

// NewSummary renders r with times formatted in loc.
func NewSummary(r Record, loc *time.Location) Summary {
	s := Summary{
		RecordID:       r.ID,
		StudentID:      r.StudentID,
		StudentName:    r.StudentName,
		SectionName:    r.SectionName,
		Date:           r.Date.Format(DateLayout),
		Classification: r.Classification,
		Label:          r.Classification.Label(),
		InputMethod:    r.InputMethod,
		Note:           r.Note,
	}
	if r.EntryAt != nil {
		entry := r.EntryAt.In(loc).Format(ClockLayout)
		s.EntryTime = &entry
	}
	if r.DepartedAt != nil {
		departure := r.DepartedAt.In(loc).Format(ClockLayout)
		s.DepartureTime = &departure
	}
	return s
}

type DailyResponse struct {
	Date     string                 `json:"date"`
	Records  []Summary              `json:"records"`
	Totals   map[Classification]int `json:"totals"`
	Departed int                    `json:"departed"`
}

// SweepResult reports one tenant's pass of the absence sweep.
type SweepResult struct {
	TenantID string `json:"tenant_id"`
	Date     string `json:"date"`
	Marked   int    `json:"marked"`
	Skipped  bool   `json:"skipped"`
	Reason   string `json:"reason,omitempty"`
}
