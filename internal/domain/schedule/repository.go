package schedule

import "context"

// Repository reads schedule entries. Every lookup is keyed by tenant.
type Repository interface {
	// GetByWeekday returns ErrScheduleNotFound when the tenant has no row for the day.
	GetByWeekday(ctx context.Context, tenantID string, dayOfWeek int) (Entry, error)

	ListByTenant(ctx context.Context, tenantID string) ([]Entry, error)
}
