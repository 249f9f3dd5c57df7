package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/student"
)

// guard is the read side of duplicate protection. It only turns the common
// case into a friendly conflict; the unique key on (tenant, student, day) is
// what actually enforces one record per day.
type guard struct {
	records attendance.AttendanceRepository
}

// checkEntry rejects a new entry when the day already has a record.
func (g guard) checkEntry(ctx context.Context, stu student.Student, day time.Time, loc *time.Location) error {
	existing, err := g.records.GetByStudentAndDate(ctx, stu.TenantID, stu.ID, day)
	if err != nil {
		return fmt.Errorf("failed to check existing attendance: %w", err)
	}
	if existing != nil {
		return conflict(attendance.ErrAlreadyRecorded, *existing, stu, loc)
	}
	return nil
}

// checkDeparture returns the record a departure may be stamped on.
func (g guard) checkDeparture(ctx context.Context, stu student.Student, day time.Time, loc *time.Location) (attendance.Record, error) {
	existing, err := g.records.GetByStudentAndDate(ctx, stu.TenantID, stu.ID, day)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to check existing attendance: %w", err)
	}
	return departable(existing, stu, loc)
}

func departable(existing *attendance.Record, stu student.Student, loc *time.Location) (attendance.Record, error) {
	if existing == nil || existing.EntryAt == nil || !existing.Classification.HasEntry() {
		return attendance.Record{}, attendance.ErrNotEntered
	}
	if existing.Departed() {
		return attendance.Record{}, conflict(attendance.ErrAlreadyDeparted, *existing, stu, loc)
	}
	return *existing, nil
}

func conflict(reason error, existing attendance.Record, stu student.Student, loc *time.Location) *attendance.ConflictError {
	withNames(&existing, stu)
	summary := attendance.NewSummary(existing, loc)
	summary.AlreadyRecorded = true
	return &attendance.ConflictError{Reason: reason, Existing: summary}
}

func withNames(r *attendance.Record, stu student.Student) {
	if r.StudentName == "" {
		r.StudentName = stu.FullName
	}
	if r.SectionName == "" {
		r.SectionName = stu.SectionName
	}
}
