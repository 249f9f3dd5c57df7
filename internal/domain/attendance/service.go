package attendance

import (
	"context"
	"time"
)

// AttendanceService defines the attendance recording engine.
type AttendanceService interface {
	// RecordScanEntry resolves a scanned card, classifies it against today's
	// cutoff and records the entry.
	RecordScanEntry(ctx context.Context, req ScanEntryRequest) (Summary, error)

	// RecordManualEntry records an operator supplied classification.
	RecordManualEntry(ctx context.Context, req ManualEntryRequest) (Summary, error)

	// RecordDeparture stamps the departure on today's entry.
	RecordDeparture(ctx context.Context, req DepartureRequest) (Summary, error)

	GetDaily(ctx context.Context, filter DailyFilter) (DailyResponse, error)

	// MarkAbsentees records absent for students without a record once the
	// tenant's cutoff plus the grace delay has passed.
	MarkAbsentees(ctx context.Context, tenantID string, now time.Time) (SweepResult, error)
}
