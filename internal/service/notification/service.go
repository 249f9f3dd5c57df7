package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/student"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/tenant"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config holds notification service configuration
type Config struct {
	WorkerCount int           // default: 2
	QueueSize   int           // default: 1000
	MaxAttempts int           // default: 5
	RelayBatch  int           // default: 100
	Lease       time.Duration // default: 2 minutes
	SendTimeout time.Duration // default: 30 seconds
	BaseBackoff time.Duration // default: 30 seconds
	MaxBackoff  time.Duration // default: 30 minutes
	Location    *time.Location
	Now         func() time.Time
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeSkipped
)

type service struct {
	outboxRepo  notification.OutboxRepository
	studentRepo student.StudentRepository
	tenantRepo  tenant.TenantRepository
	renderer    *Renderer
	sender      notification.Sender
	config      Config

	queue    chan notification.DispatchRequest
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewNotificationService creates a new notification service with background workers
func NewNotificationService(
	outboxRepo notification.OutboxRepository,
	studentRepo student.StudentRepository,
	tenantRepo tenant.TenantRepository,
	renderer *Renderer,
	sender notification.Sender,
	cfg Config,
) notification.NotificationService {
	// Set defaults
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RelayBatch <= 0 {
		cfg.RelayBatch = 100
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 30 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &service{
		outboxRepo:  outboxRepo,
		studentRepo: studentRepo,
		tenantRepo:  tenantRepo,
		renderer:    renderer,
		sender:      sender,
		config:      cfg,
		queue:       make(chan notification.DispatchRequest, cfg.QueueSize),
		stopCh:      make(chan struct{}),
	}

	// Start background workers
	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("notification dispatcher started",
		"workers", cfg.WorkerCount,
		"queue_size", cfg.QueueSize,
		"max_attempts", cfg.MaxAttempts,
	)

	return s
}

// Dispatch queues a committed outbox entry. A full queue drops the request;
// the entry stays pending in the outbox and the relay delivers it later.
func (s *service) Dispatch(req notification.DispatchRequest) {
	select {
	case <-s.stopCh:
		return
	default:
	}

	select {
	case s.queue <- req:
	default:
		slog.Warn("dispatch queue full, leaving entry for relay",
			"outbox_id", req.OutboxID,
			"tenant_id", req.TenantID,
		)
	}
}

// worker is the background worker that processes the dispatch queue
func (s *service) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case req := <-s.queue:
			s.handle(id, req)
		case <-s.stopCh:
			return
		}
	}
}

func (s *service) handle(workerID int, req notification.DispatchRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.SendTimeout)
	defer cancel()

	entry, err := s.outboxRepo.Claim(ctx, req.OutboxID, s.config.Now(), s.config.Lease, s.config.MaxAttempts)
	if err != nil {
		slog.Error("failed to claim outbox entry",
			"worker", workerID,
			"outbox_id", req.OutboxID,
			"error", err,
		)
		return
	}
	if entry == nil {
		// Another worker or the relay already has it.
		return
	}

	s.process(ctx, *entry)
}

// Relay implements notification.NotificationService.
func (s *service) Relay(ctx context.Context) (notification.RelayResult, error) {
	entries, err := s.outboxRepo.ClaimDue(ctx, s.config.Now(), s.config.Lease, s.config.MaxAttempts, s.config.RelayBatch)
	if err != nil {
		return notification.RelayResult{}, fmt.Errorf("failed to claim due outbox entries: %w", err)
	}

	var (
		mu     sync.Mutex
		result = notification.RelayResult{Claimed: len(entries)}
	)
	g := new(errgroup.Group)
	g.SetLimit(s.config.WorkerCount)
	for _, entry := range entries {
		g.Go(func() error {
			entryCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
			defer cancel()
			o := s.process(entryCtx, entry)

			mu.Lock()
			defer mu.Unlock()
			switch o {
			case outcomeSent:
				result.Sent++
			case outcomeFailed:
				result.Failed++
			case outcomeSkipped:
				result.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	if result.Claimed > 0 {
		slog.Info("outbox relay pass finished",
			"claimed", result.Claimed,
			"sent", result.Sent,
			"failed", result.Failed,
			"skipped", result.Skipped,
		)
	}
	return result, nil
}

// process delivers one claimed entry and records the outcome.
func (s *service) process(ctx context.Context, entry notification.OutboxEntry) outcome {
	stu, err := s.studentRepo.GetByID(ctx, entry.TenantID, entry.StudentID)
	if err != nil {
		if errors.Is(err, student.ErrStudentNotFound) {
			return s.skip(ctx, entry, student.ErrStudentNotFound.Error())
		}
		return s.fail(ctx, entry, fmt.Errorf("failed to get student: %w", err))
	}

	recipients := stu.Recipients()
	if len(recipients) == 0 {
		return s.skip(ctx, entry, notification.ErrNoRecipients.Error())
	}

	loc := s.config.Location
	if t, err := s.tenantRepo.GetByID(ctx, entry.TenantID); err == nil {
		loc = t.Location(loc)
	}

	occurred := entry.OccurredAt.In(loc)
	msg, err := s.renderer.Render(ctx, entry.TenantID, entry.Kind, MessageData{
		StudentName: stu.FullName,
		SectionName: stu.SectionName,
		Label:       entry.Kind.Label(),
		Time:        occurred.Format("15:04"),
		Date:        occurred.Format("2006-01-02"),
	})
	if err != nil {
		return s.fail(ctx, entry, err)
	}

	delivered, err := s.outboxRepo.DeliveredRelations(ctx, entry.ID)
	if err != nil {
		return s.fail(ctx, entry, fmt.Errorf("failed to read previous deliveries: %w", err))
	}
	done := make(map[string]bool, len(delivered))
	for _, rel := range delivered {
		done[rel] = true
	}

	var failures []string
	for _, g := range recipients {
		if done[string(g.Relation)] {
			continue
		}

		ch := notification.Channel{Relation: string(g.Relation), Name: g.Name, Address: g.Address}
		sendErr := s.sender.Send(ctx, ch, msg)

		delivery := notification.Delivery{
			ID:        uuid.Must(uuid.NewV7()).String(),
			OutboxID:  entry.ID,
			TenantID:  entry.TenantID,
			Relation:  ch.Relation,
			Address:   ch.Address,
			Status:    notification.DeliverySent,
			CreatedAt: s.config.Now(),
		}
		if sendErr != nil {
			reason := sendErr.Error()
			delivery.Status = notification.DeliveryFailed
			delivery.Error = &reason
			failures = append(failures, ch.Relation+": "+reason)
		}
		if err := s.outboxRepo.RecordDelivery(ctx, delivery); err != nil {
			slog.Error("failed to record delivery",
				"outbox_id", entry.ID,
				"relation", ch.Relation,
				"error", err,
			)
		}
	}

	if len(failures) > 0 {
		return s.fail(ctx, entry, errors.New(strings.Join(failures, "; ")))
	}

	if err := s.outboxRepo.MarkSent(ctx, entry.ID, s.config.Now()); err != nil {
		slog.Error("failed to mark outbox entry sent", "outbox_id", entry.ID, "error", err)
	}
	slog.Info("notification sent",
		"outbox_id", entry.ID,
		"tenant_id", entry.TenantID,
		"student_id", entry.StudentID,
		"kind", entry.Kind,
		"recipients", len(recipients),
	)
	return outcomeSent
}

func (s *service) fail(ctx context.Context, entry notification.OutboxEntry, cause error) outcome {
	next := s.config.Now().Add(s.backoff(entry.Attempts))
	if err := s.outboxRepo.MarkFailed(ctx, entry.ID, cause.Error(), next); err != nil {
		slog.Error("failed to mark outbox entry failed", "outbox_id", entry.ID, "error", err)
	}

	attrs := []any{
		"outbox_id", entry.ID,
		"tenant_id", entry.TenantID,
		"kind", entry.Kind,
		"attempt", entry.Attempts,
		"error", cause,
	}
	if entry.Attempts >= s.config.MaxAttempts {
		slog.Error("notification failed permanently", attrs...)
	} else {
		slog.Warn("notification failed, will retry", append(attrs, "next_attempt_at", next)...)
	}
	return outcomeFailed
}

func (s *service) skip(ctx context.Context, entry notification.OutboxEntry, reason string) outcome {
	if err := s.outboxRepo.MarkSkipped(ctx, entry.ID, reason); err != nil {
		slog.Error("failed to mark outbox entry skipped", "outbox_id", entry.ID, "error", err)
	}
	slog.Info("notification skipped", "outbox_id", entry.ID, "reason", reason)
	return outcomeSkipped
}

// backoff doubles from BaseBackoff per attempt, capped at MaxBackoff.
func (s *service) backoff(attempts int) time.Duration {
	d := s.config.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= s.config.MaxBackoff {
			return s.config.MaxBackoff
		}
	}
	return d
}

// ListOutbox implements notification.NotificationService.
func (s *service) ListOutbox(ctx context.Context, filter notification.OutboxFilter) (notification.ListOutboxResponse, error) {
	if err := filter.Validate(); err != nil {
		return notification.ListOutboxResponse{}, err
	}

	entries, total, err := s.outboxRepo.List(ctx, filter)
	if err != nil {
		return notification.ListOutboxResponse{}, fmt.Errorf("failed to list outbox: %w", err)
	}

	responses := make([]notification.OutboxResponse, len(entries))
	for i, e := range entries {
		responses[i] = notification.OutboxResponse{
			ID:            e.ID,
			StudentID:     e.StudentID,
			RecordID:      e.RecordID,
			Kind:          e.Kind,
			OccurredAt:    e.OccurredAt,
			Status:        e.Status,
			Attempts:      e.Attempts,
			LastError:     e.LastError,
			NextAttemptAt: e.NextAttemptAt,
			SentAt:        e.SentAt,
			CreatedAt:     e.CreatedAt,
		}
	}

	return notification.ListOutboxResponse{
		Entries:  responses,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// Stop gracefully stops the notification workers. Queued requests that were
// not picked up stay pending in the outbox.
func (s *service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		slog.Info("notification dispatcher stopped")
	})
}
