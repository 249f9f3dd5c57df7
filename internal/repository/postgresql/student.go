package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/student"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type studentRepository struct {
	db *database.DB
}

// GetByID implements student.StudentRepository.
func (r *studentRepository) GetByID(ctx context.Context, tenantID, id string) (student.Student, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT s.id, s.tenant_id, s.section_id, s.code, s.full_name, s.notify_preference,
			   s.status, s.created_at, s.updated_at, sec.name
		FROM students s
		JOIN sections sec ON sec.id = s.section_id
		WHERE s.tenant_id = $1
		  AND s.id = $2
	`

	var s student.Student
	err := q.QueryRow(ctx, query, tenantID, id).Scan(
		&s.ID, &s.TenantID, &s.SectionID, &s.Code, &s.FullName, &s.NotifyPreference,
		&s.Status, &s.CreatedAt, &s.UpdatedAt, &s.SectionName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return student.Student{}, student.ErrStudentNotFound
		}
		return student.Student{}, fmt.Errorf("failed to get student: %w", err)
	}

	guardianQuery := `
		SELECT relation, name, address
		FROM student_guardians
		WHERE tenant_id = $1
		  AND student_id = $2
		ORDER BY relation
	`

	rows, err := q.Query(ctx, guardianQuery, tenantID, id)
	if err != nil {
		return student.Student{}, fmt.Errorf("failed to get guardians: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var g student.Guardian
		if err := rows.Scan(&g.Relation, &g.Name, &g.Address); err != nil {
			return student.Student{}, fmt.Errorf("failed to scan guardian: %w", err)
		}
		s.Guardians = append(s.Guardians, g)
	}
	if err := rows.Err(); err != nil {
		return student.Student{}, fmt.Errorf("failed to iterate guardians: %w", err)
	}

	return s, nil
}

// GetSection implements student.StudentRepository.
func (r *studentRepository) GetSection(ctx context.Context, tenantID, sectionID string) (student.Section, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, name, student_count
		FROM sections
		WHERE tenant_id = $1
		  AND id = $2
	`

	var sec student.Section
	err := q.QueryRow(ctx, query, tenantID, sectionID).Scan(&sec.ID, &sec.TenantID, &sec.Name, &sec.StudentCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return student.Section{}, student.ErrSectionNotFound
		}
		return student.Section{}, fmt.Errorf("failed to get section: %w", err)
	}

	return sec, nil
}

// UpdateSection implements student.StudentRepository.
func (r *studentRepository) UpdateSection(ctx context.Context, tenantID, studentID, fromSectionID, toSectionID string) error {
	q := GetQuerier(ctx, r.db)

	// A concurrent transfer that committed first re-evaluates this predicate
	// after the row lock is released and matches nothing.
	query := `
		UPDATE students
		SET section_id = $4, updated_at = now()
		WHERE tenant_id = $1
		  AND id = $2
		  AND section_id = $3
	`

	tag, err := q.Exec(ctx, query, tenantID, studentID, fromSectionID, toSectionID)
	if err != nil {
		return fmt.Errorf("failed to update student section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return student.ErrSectionChanged
	}

	return nil
}

// AdjustSectionCount implements student.StudentRepository.
func (r *studentRepository) AdjustSectionCount(ctx context.Context, tenantID, sectionID string, delta int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE sections
		SET student_count = student_count + $3, updated_at = now()
		WHERE tenant_id = $1
		  AND id = $2
	`

	tag, err := q.Exec(ctx, query, tenantID, sectionID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust section count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return student.ErrSectionNotFound
	}

	return nil
}

func NewStudentRepository(db *database.DB) student.StudentRepository {
	return &studentRepository{db: db}
}
