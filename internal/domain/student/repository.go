package student

import "context"

// StudentRepository resolves roster data. All methods take tenantID so a
// student of another tenant is indistinguishable from a missing one.
type StudentRepository interface {
	// GetByID returns the student with guardians and section name.
	GetByID(ctx context.Context, tenantID, id string) (Student, error)

	GetSection(ctx context.Context, tenantID, sectionID string) (Section, error)

	// UpdateSection moves the student from fromSectionID to toSectionID and
	// returns ErrSectionChanged when the student is no longer in fromSectionID.
	// Section counts are adjusted by the caller inside the same transaction.
	UpdateSection(ctx context.Context, tenantID, studentID, fromSectionID, toSectionID string) error

	AdjustSectionCount(ctx context.Context, tenantID, sectionID string, delta int) error
}
