package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/schedule"
)

// SystemActor is recorded as the operator of sweep-created records.
const SystemActor = "system"

// MarkAbsentees implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) MarkAbsentees(ctx context.Context, tenantID string, now time.Time) (attendance.SweepResult, error) {
	loc, err := s.location(ctx, tenantID)
	if err != nil {
		return attendance.SweepResult{}, err
	}

	day := schedule.CivilDay(now, loc)
	result := attendance.SweepResult{
		TenantID: tenantID,
		Date:     day.Format(attendance.DateLayout),
	}

	resolution, err := s.resolver.Resolve(ctx, tenantID, day, loc)
	if err != nil {
		return result, fmt.Errorf("failed to resolve schedule: %w", err)
	}
	if !resolution.Found {
		result.Skipped = true
		result.Reason = "no schedule for this weekday"
		return result, nil
	}

	threshold := resolution.Entry.EntryCutoff.On(day).Add(s.cfg.AbsenceAfter)
	if now.Before(threshold) {
		result.Skipped = true
		result.Reason = "absence threshold not reached"
		return result, nil
	}

	var (
		marked []attendance.Record
		queued []notification.OutboxEntry
	)
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		marked, err = s.attendanceRepo.CreateAbsentees(txCtx, tenantID, day, SystemActor)
		if err != nil {
			return fmt.Errorf("failed to create absent records: %w", err)
		}

		queued = make([]notification.OutboxEntry, 0, len(marked))
		for _, record := range marked {
			entry, err := s.outboxRepo.Enqueue(txCtx, newOutboxEntry(record, notification.KindAbsent, now))
			if err != nil {
				return fmt.Errorf("failed to enqueue notification: %w", err)
			}
			queued = append(queued, entry)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	for i := range marked {
		s.afterCommit(tenantID, attendance.NewSummary(marked[i], loc), &queued[i])
	}

	result.Marked = len(marked)
	if result.Marked > 0 {
		slog.Info("absent students marked",
			"tenant_id", tenantID,
			"date", result.Date,
			"count", result.Marked,
		)
	}
	return result, nil
}
