package attendance

import (
	"time"
)

type Classification string

const (
	ClassOnTime  Classification = "on_time"
	ClassLate    Classification = "late"
	ClassAbsent  Classification = "absent"
	ClassExcused Classification = "excused"
	ClassSick    Classification = "sick"
)

var ClassificationValues = []string{
	string(ClassOnTime),
	string(ClassLate),
	string(ClassAbsent),
	string(ClassExcused),
	string(ClassSick),
}

var classificationLabels = map[Classification]string{
	ClassOnTime:  "On time",
	ClassLate:    "Late",
	ClassAbsent:  "Absent",
	ClassExcused: "Excused",
	ClassSick:    "Sick",
}

func (c Classification) IsValid() bool {
	_, ok := classificationLabels[c]
	return ok
}

// Label is the human readable form used in responses and messages.
func (c Classification) Label() string {
	if l, ok := classificationLabels[c]; ok {
		return l
	}
	return string(c)
}

// HasEntry reports whether the student was physically present.
func (c Classification) HasEntry() bool {
	return c == ClassOnTime || c == ClassLate
}

// Notifies reports whether guardians are told about this classification.
// Excused and sick are reported by the family, so nobody is notified.
func (c Classification) Notifies() bool {
	return c == ClassOnTime || c == ClassLate || c == ClassAbsent
}

type InputMethod string

const (
	InputScan   InputMethod = "scan"
	InputManual InputMethod = "manual"
	InputSystem InputMethod = "system"
)

// Record is one student's attendance for one civil day.
type Record struct {
	ID             string
	TenantID       string
	StudentID      string
	Date           time.Time // civil day; only year, month and day are meaningful
	EntryAt        *time.Time
	Classification Classification
	DepartedAt     *time.Time
	InputMethod    InputMethod
	RecordedBy     string
	Note           *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// DTO
	StudentName string
	SectionName string
}

// Departed reports whether the departure has been stamped.
func (r Record) Departed() bool {
	return r.DepartedAt != nil
}
