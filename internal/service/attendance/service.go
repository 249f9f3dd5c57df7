package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/student"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/tenant"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/qrcode"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/sse"
	"github.com/google/uuid"
)

// EventAttendance is the SSE event name of the live attendance feed.
const EventAttendance = "attendance"

// Publisher receives every recorded event for the tenant's live feed.
type Publisher interface {
	Publish(topic string, event sse.Event)
}

type Config struct {
	// Location is the system civil zone for tenants without their own.
	Location *time.Location
	// AbsenceAfter is how long after the entry cutoff the sweep waits.
	AbsenceAfter time.Duration
	// QRSigningKey enables card signature checks when non-empty.
	QRSigningKey string
	// Now overrides the clock in tests.
	Now func() time.Time
}

type AttendanceServiceImpl struct {
	tx             database.Transactor
	attendanceRepo attendance.AttendanceRepository
	studentRepo    student.StudentRepository
	tenantRepo     tenant.TenantRepository
	resolver       schedule.Resolver
	outboxRepo     notification.OutboxRepository
	dispatcher     notification.Dispatcher
	feed           Publisher
	parser         *qrcode.Parser
	guard          guard
	cfg            Config
}

// RecordScanEntry implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RecordScanEntry(ctx context.Context, req attendance.ScanEntryRequest) (attendance.Summary, error) {
	if err := req.Validate(); err != nil {
		return attendance.Summary{}, err
	}

	payload, err := s.parser.Parse(req.Payload, req.TenantID)
	if err != nil {
		return attendance.Summary{}, err
	}

	loc, err := s.location(ctx, req.TenantID)
	if err != nil {
		return attendance.Summary{}, err
	}

	stu, err := s.resolveStudent(ctx, req.TenantID, payload.StudentID)
	if err != nil {
		return attendance.Summary{}, err
	}

	now := s.now()
	day := schedule.CivilDay(now, loc)

	resolution, err := s.resolver.Resolve(ctx, req.TenantID, day, loc)
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to resolve schedule: %w", err)
	}
	if !resolution.Found {
		return attendance.Summary{}, attendance.ErrNoSchedule
	}

	if err := s.guard.checkEntry(ctx, stu, day, loc); err != nil {
		return attendance.Summary{}, err
	}

	classification := attendance.Classify(schedule.ClockOf(now.In(loc)), resolution.Entry.EntryCutoff)

	record := attendance.Record{
		ID:             newID(),
		TenantID:       req.TenantID,
		StudentID:      stu.ID,
		Date:           day,
		EntryAt:        &now,
		Classification: classification,
		InputMethod:    attendance.InputScan,
		RecordedBy:     req.OperatorID,
	}

	return s.recordEntry(ctx, record, stu, now, loc)
}

// RecordManualEntry implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RecordManualEntry(ctx context.Context, req attendance.ManualEntryRequest) (attendance.Summary, error) {
	if err := req.Validate(); err != nil {
		return attendance.Summary{}, err
	}
	if !req.Classification.IsValid() {
		return attendance.Summary{}, attendance.ErrInvalidClassification
	}

	loc, err := s.location(ctx, req.TenantID)
	if err != nil {
		return attendance.Summary{}, err
	}

	stu, err := s.resolveStudent(ctx, req.TenantID, req.StudentID)
	if err != nil {
		return attendance.Summary{}, err
	}

	now := s.now()
	today := schedule.CivilDay(now, loc)
	day := today
	if req.Date != nil && *req.Date != "" {
		parsed, err := time.ParseInLocation(attendance.DateLayout, *req.Date, loc)
		if err != nil {
			return attendance.Summary{}, attendance.ErrInvalidDate
		}
		if parsed.After(today) {
			return attendance.Summary{}, attendance.ErrFutureDateNotAllowed
		}
		day = parsed
	}

	if err := s.guard.checkEntry(ctx, stu, day, loc); err != nil {
		return attendance.Summary{}, err
	}

	record := attendance.Record{
		ID:             newID(),
		TenantID:       req.TenantID,
		StudentID:      stu.ID,
		Date:           day,
		Classification: req.Classification,
		InputMethod:    attendance.InputManual,
		RecordedBy:     req.OperatorID,
		Note:           req.Note,
	}

	if req.Classification.HasEntry() {
		entryAt, err := s.manualEntryTime(ctx, req.TenantID, day, today, now, loc)
		if err != nil {
			return attendance.Summary{}, err
		}
		record.EntryAt = &entryAt
	}

	return s.recordEntry(ctx, record, stu, now, loc)
}

// RecordDeparture implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RecordDeparture(ctx context.Context, req attendance.DepartureRequest) (attendance.Summary, error) {
	if err := req.Validate(); err != nil {
		return attendance.Summary{}, err
	}

	payload, err := s.parser.Parse(req.Payload, req.TenantID)
	if err != nil {
		return attendance.Summary{}, err
	}

	loc, err := s.location(ctx, req.TenantID)
	if err != nil {
		return attendance.Summary{}, err
	}

	stu, err := s.resolveStudent(ctx, req.TenantID, payload.StudentID)
	if err != nil {
		return attendance.Summary{}, err
	}

	now := s.now()
	day := schedule.CivilDay(now, loc)

	record, err := s.guard.checkDeparture(ctx, stu, day, loc)
	if err != nil {
		return attendance.Summary{}, err
	}

	var queued *notification.OutboxEntry
	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		stamped, err := s.attendanceRepo.MarkDeparted(txCtx, req.TenantID, record.ID, now)
		if err != nil {
			return fmt.Errorf("failed to record departure: %w", err)
		}
		if !stamped {
			return attendance.ErrAlreadyDeparted
		}

		entry, err := s.outboxRepo.Enqueue(txCtx, newOutboxEntry(record, notification.KindDeparted, now))
		if err != nil {
			return fmt.Errorf("failed to enqueue notification: %w", err)
		}
		queued = &entry
		return nil
	})
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyDeparted) {
			// Lost the race to a concurrent departure; report what won.
			return attendance.Summary{}, s.departureConflict(ctx, stu, day, loc)
		}
		return attendance.Summary{}, err
	}

	record.DepartedAt = &now
	withNames(&record, stu)
	summary := attendance.NewSummary(record, loc)

	s.afterCommit(req.TenantID, summary, queued)

	slog.Info("departure recorded",
		"tenant_id", req.TenantID,
		"student_id", stu.ID,
		"record_id", record.ID,
	)

	return summary, nil
}

// GetDaily implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetDaily(ctx context.Context, filter attendance.DailyFilter) (attendance.DailyResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.DailyResponse{}, err
	}

	loc, err := s.location(ctx, filter.TenantID)
	if err != nil {
		return attendance.DailyResponse{}, err
	}

	day := schedule.CivilDay(s.now(), loc)
	if filter.Date != nil && *filter.Date != "" {
		day, err = time.ParseInLocation(attendance.DateLayout, *filter.Date, loc)
		if err != nil {
			return attendance.DailyResponse{}, attendance.ErrInvalidDate
		}
	}

	records, err := s.attendanceRepo.ListByDate(ctx, filter.TenantID, day)
	if err != nil {
		return attendance.DailyResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	response := attendance.DailyResponse{
		Date:    day.Format(attendance.DateLayout),
		Records: make([]attendance.Summary, 0, len(records)),
		Totals:  make(map[attendance.Classification]int, len(attendance.ClassificationValues)),
	}
	for _, c := range attendance.ClassificationValues {
		response.Totals[attendance.Classification(c)] = 0
	}
	for _, r := range records {
		response.Records = append(response.Records, attendance.NewSummary(r, loc))
		response.Totals[r.Classification]++
		if r.Departed() {
			response.Departed++
		}
	}

	return response, nil
}

// recordEntry persists a new entry with its outbox row and converts a lost
// unique-key race into the same conflict the guard reports.
func (s *AttendanceServiceImpl) recordEntry(ctx context.Context, record attendance.Record, stu student.Student, now time.Time, loc *time.Location) (attendance.Summary, error) {
	var queued *notification.OutboxEntry
	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		created, err := s.attendanceRepo.Create(txCtx, record)
		if err != nil {
			return err
		}
		record = created

		if !record.Classification.Notifies() {
			return nil
		}
		entry, err := s.outboxRepo.Enqueue(txCtx, newOutboxEntry(record, notification.KindOf(record.Classification), now))
		if err != nil {
			return fmt.Errorf("failed to enqueue notification: %w", err)
		}
		queued = &entry
		return nil
	})
	if err != nil {
		if errors.Is(err, attendance.ErrDuplicateRecord) {
			return attendance.Summary{}, s.entryConflict(ctx, stu, record.Date, loc)
		}
		return attendance.Summary{}, fmt.Errorf("failed to record attendance: %w", err)
	}

	withNames(&record, stu)
	summary := attendance.NewSummary(record, loc)

	s.afterCommit(record.TenantID, summary, queued)

	slog.Info("attendance recorded",
		"tenant_id", record.TenantID,
		"student_id", record.StudentID,
		"record_id", record.ID,
		"classification", record.Classification,
		"input_method", record.InputMethod,
	)

	return summary, nil
}

// entryConflict re-reads the record that won a concurrent insert.
func (s *AttendanceServiceImpl) entryConflict(ctx context.Context, stu student.Student, day time.Time, loc *time.Location) error {
	winner, err := s.attendanceRepo.GetByStudentAndDate(ctx, stu.TenantID, stu.ID, day)
	if err != nil {
		return fmt.Errorf("failed to read conflicting attendance: %w", err)
	}
	if winner == nil {
		// Retryable; must not surface as a missing resource.
		return fmt.Errorf("attendance for student %s on %s violated uniqueness but no record was found",
			stu.ID, day.Format(attendance.DateLayout))
	}
	return conflict(attendance.ErrAlreadyRecorded, *winner, stu, loc)
}

func (s *AttendanceServiceImpl) departureConflict(ctx context.Context, stu student.Student, day time.Time, loc *time.Location) error {
	current, err := s.attendanceRepo.GetByStudentAndDate(ctx, stu.TenantID, stu.ID, day)
	if err != nil {
		return fmt.Errorf("failed to read conflicting attendance: %w", err)
	}
	if _, err := departable(current, stu, loc); err != nil {
		return err
	}
	return fmt.Errorf("departure was not stamped but record is still open")
}

// afterCommit hands the committed outbox entry to the dispatcher and feeds the
// live stream. Neither can fail the request.
func (s *AttendanceServiceImpl) afterCommit(tenantID string, summary attendance.Summary, queued *notification.OutboxEntry) {
	if queued != nil && s.dispatcher != nil {
		s.dispatcher.Dispatch(notification.DispatchRequest{
			OutboxID:   queued.ID,
			TenantID:   queued.TenantID,
			StudentID:  queued.StudentID,
			Kind:       queued.Kind,
			OccurredAt: queued.OccurredAt,
		})
	}
	if s.feed != nil {
		s.feed.Publish(tenantID, sse.Event{Event: EventAttendance, Data: summary})
	}
}

// manualEntryTime is now for today. A past day has no observed time, so the
// entry is placed at that day's cutoff, or midnight when the school was closed.
func (s *AttendanceServiceImpl) manualEntryTime(ctx context.Context, tenantID string, day, today, now time.Time, loc *time.Location) (time.Time, error) {
	if day.Equal(today) {
		return now, nil
	}
	resolution, err := s.resolver.Resolve(ctx, tenantID, day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to resolve schedule: %w", err)
	}
	if !resolution.Found {
		return day, nil
	}
	return resolution.Entry.EntryCutoff.On(day), nil
}

func (s *AttendanceServiceImpl) location(ctx context.Context, tenantID string) (*time.Location, error) {
	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t.Location(s.cfg.Location), nil
}

// resolveStudent treats other tenants' students and inactive students as missing.
func (s *AttendanceServiceImpl) resolveStudent(ctx context.Context, tenantID, studentID string) (student.Student, error) {
	stu, err := s.studentRepo.GetByID(ctx, tenantID, studentID)
	if err != nil {
		if errors.Is(err, student.ErrStudentNotFound) {
			return student.Student{}, student.ErrStudentNotFound
		}
		return student.Student{}, fmt.Errorf("failed to get student: %w", err)
	}
	if stu.TenantID != tenantID || !stu.IsActive() {
		return student.Student{}, student.ErrStudentNotFound
	}
	return stu, nil
}

func (s *AttendanceServiceImpl) now() time.Time {
	if s.cfg.Now != nil {
		return s.cfg.Now()
	}
	return time.Now()
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func newOutboxEntry(record attendance.Record, kind notification.Kind, at time.Time) notification.OutboxEntry {
	return notification.OutboxEntry{
		ID:            newID(),
		TenantID:      record.TenantID,
		StudentID:     record.StudentID,
		RecordID:      record.ID,
		Kind:          kind,
		OccurredAt:    at,
		Status:        notification.StatusPending,
		NextAttemptAt: at,
	}
}

func NewAttendanceService(
	tx database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	studentRepo student.StudentRepository,
	tenantRepo tenant.TenantRepository,
	resolver schedule.Resolver,
	outboxRepo notification.OutboxRepository,
	dispatcher notification.Dispatcher,
	feed Publisher,
	cfg Config,
) attendance.AttendanceService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &AttendanceServiceImpl{
		tx:             tx,
		attendanceRepo: attendanceRepo,
		studentRepo:    studentRepo,
		tenantRepo:     tenantRepo,
		resolver:       resolver,
		outboxRepo:     outboxRepo,
		dispatcher:     dispatcher,
		feed:           feed,
		parser:         qrcode.NewParser(cfg.QRSigningKey),
		guard:          guard{records: attendanceRepo},
		cfg:            cfg,
	}
}
