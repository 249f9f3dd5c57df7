package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const attendanceDayKey = "attendance_records_tenant_student_day_key"

const recordColumns = `
	r.id, r.tenant_id, r.student_id, r.attendance_date, r.entry_at, r.classification,
	r.departed_at, r.input_method, r.recorded_by, r.note, r.created_at, r.updated_at`

type attendanceRepository struct {
	db *database.DB
}

func scanRecord(row pgx.Row, extra ...any) (attendance.Record, error) {
	var r attendance.Record
	dest := []any{
		&r.ID, &r.TenantID, &r.StudentID, &r.Date, &r.EntryAt, &r.Classification,
		&r.DepartedAt, &r.InputMethod, &r.RecordedBy, &r.Note, &r.CreatedAt, &r.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return r, err
}

func civilDate(t time.Time) string {
	return t.Format(attendance.DateLayout)
}

// GetByStudentAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByStudentAndDate(ctx context.Context, tenantID, studentID string, date time.Time) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + recordColumns + `, s.full_name, sec.name
		FROM attendance_records r
		JOIN students s ON s.id = r.student_id AND s.tenant_id = r.tenant_id
		JOIN sections sec ON sec.id = s.section_id
		WHERE r.tenant_id = $1
		  AND r.student_id = $2
		  AND r.attendance_date = $3::date
	`

	var studentName, sectionName string
	rec, err := scanRecord(q.QueryRow(ctx, query, tenantID, studentID, civilDate(date)), &studentName, &sectionName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}
	rec.StudentName = studentName
	rec.SectionName = sectionName

	return &rec, nil
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO attendance_records (
			id, tenant_id, student_id, attendance_date, entry_at, classification,
			input_method, recorded_by, note
		) VALUES (
			$1, $2, $3, $4::date, $5, $6, $7, $8, $9
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		record.ID,
		record.TenantID,
		record.StudentID,
		civilDate(record.Date),
		record.EntryAt,
		record.Classification,
		record.InputMethod,
		record.RecordedBy,
		record.Note,
	).Scan(&record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, attendanceDayKey) {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return record, nil
}

// MarkDeparted implements attendance.AttendanceRepository.
func (a *attendanceRepository) MarkDeparted(ctx context.Context, tenantID, recordID string, at time.Time) (bool, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records
		SET departed_at = $3, updated_at = now()
		WHERE tenant_id = $1
		  AND id = $2
		  AND entry_at IS NOT NULL
		  AND departed_at IS NULL
	`

	tag, err := q.Exec(ctx, query, tenantID, recordID, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark departure: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListByDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByDate(ctx context.Context, tenantID string, date time.Time) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ` + recordColumns + `, s.full_name, sec.name
		FROM attendance_records r
		JOIN students s ON s.id = r.student_id AND s.tenant_id = r.tenant_id
		JOIN sections sec ON sec.id = s.section_id
		WHERE r.tenant_id = $1
		  AND r.attendance_date = $2::date
		ORDER BY sec.name, s.full_name
	`

	rows, err := q.Query(ctx, query, tenantID, civilDate(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var studentName, sectionName string
		rec, err := scanRecord(rows, &studentName, &sectionName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		rec.StudentName = studentName
		rec.SectionName = sectionName
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CreateAbsentees implements attendance.AttendanceRepository.
func (a *attendanceRepository) CreateAbsentees(ctx context.Context, tenantID string, date time.Time, recordedBy string) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	// ON CONFLICT keeps a concurrent scan for the same student as the winner.
	query := `
		WITH inserted AS (
			INSERT INTO attendance_records (
				id, tenant_id, student_id, attendance_date, classification, input_method, recorded_by
			)
			SELECT gen_random_uuid(), s.tenant_id, s.id, $2::date, $3, $4, $5
			FROM students s
			WHERE s.tenant_id = $1
			  AND s.status = 'active'
			  AND NOT EXISTS (
				SELECT 1 FROM attendance_records x
				WHERE x.tenant_id = s.tenant_id
				  AND x.student_id = s.id
				  AND x.attendance_date = $2::date
			  )
			ON CONFLICT ON CONSTRAINT ` + attendanceDayKey + ` DO NOTHING
			RETURNING *
		)
		SELECT ` + recordColumns + `, s.full_name, sec.name
		FROM inserted r
		JOIN students s ON s.id = r.student_id
		JOIN sections sec ON sec.id = s.section_id
		ORDER BY sec.name, s.full_name
	`

	rows, err := q.Query(ctx, query,
		tenantID,
		civilDate(date),
		attendance.ClassAbsent,
		attendance.InputSystem,
		recordedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert absent records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var studentName, sectionName string
		rec, err := scanRecord(rows, &studentName, &sectionName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan absent record: %w", err)
		}
		rec.StudentName = studentName
		rec.SectionName = sectionName
		records = append(records, rec)
	}

	return records, rows.Err()
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}
