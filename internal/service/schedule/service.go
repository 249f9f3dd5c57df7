package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/schedule"
)

type scheduleResolverImpl struct {
	scheduleRepo schedule.Repository
}

// Resolve implements schedule.Resolver.
func (s *scheduleResolverImpl) Resolve(ctx context.Context, tenantID string, day time.Time, loc *time.Location) (schedule.Resolution, error) {
	if loc == nil {
		return schedule.Resolution{}, fmt.Errorf("resolve schedule: nil location")
	}

	weekday := schedule.ISOWeekday(day.In(loc))

	entry, err := s.scheduleRepo.GetByWeekday(ctx, tenantID, weekday)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			return schedule.Resolution{Found: false}, nil
		}
		return schedule.Resolution{}, fmt.Errorf("failed to get schedule for weekday %d: %w", weekday, err)
	}

	if !entry.Active {
		return schedule.Resolution{Found: false}, nil
	}

	return schedule.Resolution{Entry: entry, Found: true}, nil
}

func NewScheduleResolver(scheduleRepo schedule.Repository) schedule.Resolver {
	return &scheduleResolverImpl{
		scheduleRepo: scheduleRepo,
	}
}
