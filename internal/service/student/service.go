package student

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/student"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
)

type StudentServiceImpl struct {
	tx          database.Transactor
	studentRepo student.StudentRepository
}

func NewStudentService(tx database.Transactor, studentRepo student.StudentRepository) student.StudentService {
	return &StudentServiceImpl{
		tx:          tx,
		studentRepo: studentRepo,
	}
}

// TransferSection implements student.StudentService.
func (s *StudentServiceImpl) TransferSection(ctx context.Context, req student.TransferSectionRequest) (student.TransferSectionResponse, error) {
	if err := req.Validate(); err != nil {
		return student.TransferSectionResponse{}, err
	}

	var resp student.TransferSectionResponse
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		stu, err := s.studentRepo.GetByID(ctx, req.TenantID, req.StudentID)
		if err != nil {
			return err
		}
		if !stu.IsActive() {
			return student.ErrStudentInactive
		}
		if stu.SectionID == req.SectionID {
			return student.ErrSameSection
		}

		from, err := s.studentRepo.GetSection(ctx, req.TenantID, stu.SectionID)
		if err != nil {
			return fmt.Errorf("failed to get current section: %w", err)
		}
		to, err := s.studentRepo.GetSection(ctx, req.TenantID, req.SectionID)
		if err != nil {
			return err
		}

		if err := s.studentRepo.UpdateSection(ctx, req.TenantID, stu.ID, from.ID, to.ID); err != nil {
			if errors.Is(err, student.ErrSectionChanged) {
				return err
			}
			return fmt.Errorf("failed to update student section: %w", err)
		}
		if err := s.studentRepo.AdjustSectionCount(ctx, req.TenantID, from.ID, -1); err != nil {
			return fmt.Errorf("failed to decrement section count: %w", err)
		}
		if err := s.studentRepo.AdjustSectionCount(ctx, req.TenantID, to.ID, 1); err != nil {
			return fmt.Errorf("failed to increment section count: %w", err)
		}

		resp = student.TransferSectionResponse{
			StudentID:       stu.ID,
			FullName:        stu.FullName,
			FromSectionID:   from.ID,
			FromSectionName: from.Name,
			ToSectionID:     to.ID,
			ToSectionName:   to.Name,
		}
		return nil
	})
	if err != nil {
		return student.TransferSectionResponse{}, err
	}

	slog.Info("student transferred",
		"tenant_id", req.TenantID,
		"student_id", resp.StudentID,
		"from_section", resp.FromSectionID,
		"to_section", resp.ToSectionID,
	)
	return resp, nil
}
