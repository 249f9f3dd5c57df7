package student

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/student"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenantID   = "0195a1b2-0000-7000-8000-000000000001"
	otherTenID = "0195a1b2-0000-7000-8000-000000000002"
	studentID  = "0195a1b2-0000-7000-8000-0000000000a1"
	section7A  = "0195a1b2-0000-7000-8000-0000000000c1"
	section7B  = "0195a1b2-0000-7000-8000-0000000000c2"
	section8A  = "0195a1b2-0000-7000-8000-0000000000c3"
	section7C  = "0195a1b2-0000-7000-8000-0000000000c4"
)

// fakeRepo snapshots its state when a transaction starts and restores it on
// rollback.
type fakeRepo struct {
	students  map[string]student.Student
	sections  map[string]student.Section
	adjustErr error
	// beforeUpdate runs between the read and the conditional update.
	beforeUpdate func(r *fakeRepo)
}

func (f *fakeRepo) GetByID(ctx context.Context, tenantID, id string) (student.Student, error) {
	s, ok := f.students[id]
	if !ok || s.TenantID != tenantID {
		return student.Student{}, student.ErrStudentNotFound
	}
	return s, nil
}

func (f *fakeRepo) GetSection(ctx context.Context, tenantID, sectionID string) (student.Section, error) {
	s, ok := f.sections[sectionID]
	if !ok || s.TenantID != tenantID {
		return student.Section{}, student.ErrSectionNotFound
	}
	return s, nil
}

func (f *fakeRepo) UpdateSection(ctx context.Context, tenantID, studentID, fromSectionID, toSectionID string) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate(f)
	}
	s := f.students[studentID]
	if s.SectionID != fromSectionID {
		return student.ErrSectionChanged
	}
	s.SectionID = toSectionID
	f.students[studentID] = s
	return nil
}

func (f *fakeRepo) AdjustSectionCount(ctx context.Context, tenantID, sectionID string, delta int) error {
	if f.adjustErr != nil && delta > 0 {
		return f.adjustErr
	}
	s := f.sections[sectionID]
	s.StudentCount += delta
	f.sections[sectionID] = s
	return nil
}

func (f *fakeRepo) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	students := make(map[string]student.Student, len(f.students))
	for k, v := range f.students {
		students[k] = v
	}
	sections := make(map[string]student.Section, len(f.sections))
	for k, v := range f.sections {
		sections[k] = v
	}

	if err := fn(ctx); err != nil {
		f.students, f.sections = students, sections
		return err
	}
	return nil
}

func newRepo() *fakeRepo {
	return &fakeRepo{
		students: map[string]student.Student{
			studentID: {ID: studentID, TenantID: tenantID, SectionID: section7A, FullName: "Budi Santoso", Status: student.StatusActive},
		},
		sections: map[string]student.Section{
			section7A: {ID: section7A, TenantID: tenantID, Name: "7A", StudentCount: 30},
			section7B: {ID: section7B, TenantID: tenantID, Name: "7B", StudentCount: 28},
			section8A: {ID: section8A, TenantID: otherTenID, Name: "8A", StudentCount: 25},
		},
	}
}

func TestTransferSection(t *testing.T) {
	repo := newRepo()
	svc := NewStudentService(repo, repo)

	resp, err := svc.TransferSection(context.Background(), student.TransferSectionRequest{
		TenantID:  tenantID,
		StudentID: studentID,
		SectionID: section7B,
	})
	require.NoError(t, err)

	assert.Equal(t, student.TransferSectionResponse{
		StudentID:       studentID,
		FullName:        "Budi Santoso",
		FromSectionID:   section7A,
		FromSectionName: "7A",
		ToSectionID:     section7B,
		ToSectionName:   "7B",
	}, resp)
	assert.Equal(t, section7B, repo.students[studentID].SectionID)
	assert.Equal(t, 29, repo.sections[section7A].StudentCount)
	assert.Equal(t, 29, repo.sections[section7B].StudentCount)
}

func TestTransferSection_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *fakeRepo)
		req     student.TransferSectionRequest
		wantErr error
	}{
		{
			name:    "same section",
			req:     student.TransferSectionRequest{TenantID: tenantID, StudentID: studentID, SectionID: section7A},
			wantErr: student.ErrSameSection,
		},
		{
			name:    "section of another tenant",
			req:     student.TransferSectionRequest{TenantID: tenantID, StudentID: studentID, SectionID: section8A},
			wantErr: student.ErrSectionNotFound,
		},
		{
			name:    "student of another tenant",
			req:     student.TransferSectionRequest{TenantID: otherTenID, StudentID: studentID, SectionID: section8A},
			wantErr: student.ErrStudentNotFound,
		},
		{
			name: "graduated student",
			mutate: func(r *fakeRepo) {
				s := r.students[studentID]
				s.Status = student.StatusGraduated
				r.students[studentID] = s
			},
			req:     student.TransferSectionRequest{TenantID: tenantID, StudentID: studentID, SectionID: section7B},
			wantErr: student.ErrStudentInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo()
			if tt.mutate != nil {
				tt.mutate(repo)
			}
			svc := NewStudentService(repo, repo)

			_, err := svc.TransferSection(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 30, repo.sections[section7A].StudentCount)
		})
	}
}

func TestTransferSection_Validation(t *testing.T) {
	repo := newRepo()
	svc := NewStudentService(repo, repo)

	_, err := svc.TransferSection(context.Background(), student.TransferSectionRequest{
		TenantID:  tenantID,
		StudentID: studentID,
		SectionID: "7B",
	})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "section_id", verrs[0].Field)
}

func TestTransferSection_RollsBackCounts(t *testing.T) {
	repo := newRepo()
	repo.adjustErr = errors.New("deadlock detected")
	svc := NewStudentService(repo, repo)

	_, err := svc.TransferSection(context.Background(), student.TransferSectionRequest{
		TenantID:  tenantID,
		StudentID: studentID,
		SectionID: section7B,
	})
	require.Error(t, err)

	assert.Equal(t, section7A, repo.students[studentID].SectionID)
	assert.Equal(t, 30, repo.sections[section7A].StudentCount)
	assert.Equal(t, 28, repo.sections[section7B].StudentCount)
}

func TestTransferSection_StudentMovedConcurrently(t *testing.T) {
	repo := newRepo()
	// Another transfer commits after this one has read the student in 7A.
	repo.beforeUpdate = func(r *fakeRepo) {
		s := r.students[studentID]
		s.SectionID = section7C
		r.students[studentID] = s
	}
	svc := NewStudentService(repo, repo)

	_, err := svc.TransferSection(context.Background(), student.TransferSectionRequest{
		TenantID:  tenantID,
		StudentID: studentID,
		SectionID: section7B,
	})
	require.ErrorIs(t, err, student.ErrSectionChanged)

	assert.Equal(t, 30, repo.sections[section7A].StudentCount)
	assert.Equal(t, 28, repo.sections[section7B].StudentCount)
}
