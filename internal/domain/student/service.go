package student

import "context"

type StudentService interface {
	// TransferSection moves a student to another section and updates both
	// section counts atomically.
	TransferSection(ctx context.Context, req TransferSectionRequest) (TransferSectionResponse, error)
}
