package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/tenant"
)

const (
	JobAbsenceSweep = "absence_sweep"
	JobOutboxRelay  = "outbox_relay"
)

type AttendanceJobs struct {
	tenantRepo        tenant.TenantRepository
	attendanceService attendance.AttendanceService
	notificationSvc   notification.NotificationService
	now               func() time.Time
}

func NewAttendanceJobs(
	tenantRepo tenant.TenantRepository,
	attendanceService attendance.AttendanceService,
	notificationSvc notification.NotificationService,
) *AttendanceJobs {
	return &AttendanceJobs{
		tenantRepo:        tenantRepo,
		attendanceService: attendanceService,
		notificationSvc:   notificationSvc,
		now:               time.Now,
	}
}

// RegisterJobs schedules the absence sweep and the outbox relay.
func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, sweepSpec, relaySpec string) error {
	if err := scheduler.AddJob(JobAbsenceSweep, sweepSpec, func(ctx context.Context) error {
		_, err := j.SweepAbsences(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", JobAbsenceSweep, err)
	}

	if err := scheduler.AddJob(JobOutboxRelay, relaySpec, func(ctx context.Context) error {
		_, err := j.RelayOutbox(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", JobOutboxRelay, err)
	}

	return nil
}

// SweepAbsences marks absentees for every tenant whose threshold has passed.
// One failing tenant does not stop the others.
func (j *AttendanceJobs) SweepAbsences(ctx context.Context) ([]attendance.SweepResult, error) {
	tenants, err := j.tenantRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	ids := make([]string, 0, len(tenants))
	for _, t := range tenants {
		ids = append(ids, t.ID)
	}
	return j.SweepTenants(ctx, ids...)
}

func (j *AttendanceJobs) SweepTenants(ctx context.Context, tenantIDs ...string) ([]attendance.SweepResult, error) {
	slog.Info("Cron: Starting absence sweep", "tenants", len(tenantIDs))

	var (
		results []attendance.SweepResult
		errs    []error
		total   int
	)
	now := j.now()
	for _, id := range tenantIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		result, err := j.attendanceService.MarkAbsentees(ctx, id, now)
		if err != nil {
			slog.Error("Cron: Failed to mark absentees", "tenant_id", id, "error", err)
			errs = append(errs, fmt.Errorf("tenant %s: %w", id, err))
			continue
		}
		total += result.Marked
		results = append(results, result)
	}

	slog.Info("Cron: Absence sweep finished", "marked", total, "failed", len(errs))
	return results, errors.Join(errs...)
}

// RelayOutbox runs one relay pass over due outbox entries.
func (j *AttendanceJobs) RelayOutbox(ctx context.Context) (notification.RelayResult, error) {
	result, err := j.notificationSvc.Relay(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to relay outbox: %w", err)
	}
	return result, nil
}
