package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/student"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/tenant"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/sse"
)

// txLog collects undo steps for writes made inside a fake transaction.
type txLog struct {
	undo []func()
}

type txLogKey struct{}

type fakeTx struct {
	store *memStore
}

func (f fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	log := &txLog{}
	if err := fn(context.WithValue(ctx, txLogKey{}, log)); err != nil {
		f.store.mu.Lock()
		for i := len(log.undo) - 1; i >= 0; i-- {
			log.undo[i]()
		}
		f.store.mu.Unlock()
		return err
	}
	return nil
}

func onRollback(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(txLogKey{}).(*txLog); ok {
		log.undo = append(log.undo, undo)
	}
}

// memStore backs both the attendance and outbox repositories so a rollback
// covers both, like a real transaction.
type memStore struct {
	mu      sync.Mutex
	records map[string]attendance.Record
	outbox  []notification.OutboxEntry
	roster  []student.Student

	hideReads  int
	createErr  error
	enqueueErr error
}

func newMemStore(roster ...student.Student) *memStore {
	return &memStore{
		records: make(map[string]attendance.Record),
		roster:  roster,
	}
}

func recordKey(tenantID, studentID string, date time.Time) string {
	return tenantID + "|" + studentID + "|" + date.Format(attendance.DateLayout)
}

func (m *memStore) GetByStudentAndDate(ctx context.Context, tenantID, studentID string, date time.Time) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hideReads > 0 {
		m.hideReads--
		return nil, nil
	}
	r, ok := m.records[recordKey(tenantID, studentID, date)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return attendance.Record{}, m.createErr
	}
	key := recordKey(record.TenantID, record.StudentID, record.Date)
	if _, exists := m.records[key]; exists {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	m.records[key] = record
	onRollback(ctx, func() { delete(m.records, key) })
	return record, nil
}

func (m *memStore) MarkDeparted(ctx context.Context, tenantID, recordID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, r := range m.records {
		if r.ID != recordID || r.TenantID != tenantID {
			continue
		}
		if r.DepartedAt != nil || r.EntryAt == nil {
			return false, nil
		}
		previous := r
		r.DepartedAt = &at
		m.records[key] = r
		onRollback(ctx, func() { m.records[key] = previous })
		return true, nil
	}
	return false, nil
}

func (m *memStore) ListByDate(ctx context.Context, tenantID string, date time.Time) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []attendance.Record
	for _, r := range m.records {
		if r.TenantID == tenantID && r.Date.Format(attendance.DateLayout) == date.Format(attendance.DateLayout) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *memStore) CreateAbsentees(ctx context.Context, tenantID string, date time.Time, recordedBy string) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var created []attendance.Record
	for _, s := range m.roster {
		if s.TenantID != tenantID || !s.IsActive() {
			continue
		}
		key := recordKey(tenantID, s.ID, date)
		if _, exists := m.records[key]; exists {
			continue
		}
		r := attendance.Record{
			ID:             "absent-" + s.ID,
			TenantID:       tenantID,
			StudentID:      s.ID,
			Date:           date,
			Classification: attendance.ClassAbsent,
			InputMethod:    attendance.InputSystem,
			RecordedBy:     recordedBy,
			StudentName:    s.FullName,
			SectionName:    s.SectionName,
		}
		m.records[key] = r
		onRollback(ctx, func() { delete(m.records, key) })
		created = append(created, r)
	}
	return created, nil
}

func (m *memStore) Enqueue(ctx context.Context, entry notification.OutboxEntry) (notification.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.enqueueErr != nil {
		return notification.OutboxEntry{}, m.enqueueErr
	}
	m.outbox = append(m.outbox, entry)
	onRollback(ctx, func() {
		for i, e := range m.outbox {
			if e.ID == entry.ID {
				m.outbox = append(m.outbox[:i], m.outbox[i+1:]...)
				return
			}
		}
	})
	return entry, nil
}

func (m *memStore) Claim(ctx context.Context, id string, now time.Time, lease time.Duration, maxAttempts int) (*notification.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.outbox {
		if e.ID != id {
			continue
		}
		if e.Attempts >= maxAttempts || (e.Status != notification.StatusPending && e.Status != notification.StatusFailed) {
			return nil, nil
		}
		until := now.Add(lease)
		e.Status = notification.StatusProcessing
		e.Attempts++
		e.LockedUntil = &until
		m.outbox[i] = e
		return &e, nil
	}
	return nil, nil
}

func (m *memStore) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, maxAttempts, limit int) ([]notification.OutboxEntry, error) {
	return nil, nil
}

func (m *memStore) MarkSent(ctx context.Context, id string, at time.Time) error { return nil }

func (m *memStore) MarkFailed(ctx context.Context, id string, reason string, nextAttemptAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.outbox {
		if e.ID == id {
			e.Status = notification.StatusFailed
			e.LastError = &reason
			e.NextAttemptAt = nextAttemptAt
			e.LockedUntil = nil
			m.outbox[i] = e
			return nil
		}
	}
	return notification.ErrOutboxNotFound
}

func (m *memStore) MarkSkipped(ctx context.Context, id string, reason string) error { return nil }

func (m *memStore) RecordDelivery(ctx context.Context, delivery notification.Delivery) error {
	return nil
}

func (m *memStore) DeliveredRelations(ctx context.Context, outboxID string) ([]string, error) {
	return nil, nil
}

func (m *memStore) List(ctx context.Context, filter notification.OutboxFilter) ([]notification.OutboxEntry, int64, error) {
	return nil, 0, nil
}

func (m *memStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memStore) outboxEntries() []notification.OutboxEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.OutboxEntry(nil), m.outbox...)
}

type fakeStudentRepo struct {
	students map[string]student.Student
}

// GetByID deliberately ignores tenantID so the service's own tenant check is
// what the tests exercise.
func (f *fakeStudentRepo) GetByID(ctx context.Context, tenantID, id string) (student.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return student.Student{}, student.ErrStudentNotFound
	}
	return s, nil
}

func (f *fakeStudentRepo) GetSection(ctx context.Context, tenantID, sectionID string) (student.Section, error) {
	return student.Section{}, student.ErrSectionNotFound
}

func (f *fakeStudentRepo) UpdateSection(ctx context.Context, tenantID, studentID, fromSectionID, toSectionID string) error {
	return nil
}

func (f *fakeStudentRepo) AdjustSectionCount(ctx context.Context, tenantID, sectionID string, delta int) error {
	return nil
}

type fakeTenantRepo struct {
	tenants map[string]tenant.Tenant
}

func (f *fakeTenantRepo) GetByID(ctx context.Context, id string) (tenant.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return tenant.Tenant{}, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (f *fakeTenantRepo) List(ctx context.Context) ([]tenant.Tenant, error) {
	var out []tenant.Tenant
	for _, t := range f.tenants {
		out = append(out, t)
	}
	return out, nil
}

type fakeScheduleRepo struct {
	entries map[string]map[int]schedule.Entry
}

func (f *fakeScheduleRepo) GetByWeekday(ctx context.Context, tenantID string, dayOfWeek int) (schedule.Entry, error) {
	e, ok := f.entries[tenantID][dayOfWeek]
	if !ok {
		return schedule.Entry{}, schedule.ErrScheduleNotFound
	}
	return e, nil
}

func (f *fakeScheduleRepo) ListByTenant(ctx context.Context, tenantID string) ([]schedule.Entry, error) {
	var out []schedule.Entry
	for _, e := range f.entries[tenantID] {
		out = append(out, e)
	}
	return out, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []notification.DispatchRequest
}

func (f *fakeDispatcher) Dispatch(req notification.DispatchRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *fakeDispatcher) sent() []notification.DispatchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification.DispatchRequest(nil), f.requests...)
}

type fakeFeed struct {
	mu     sync.Mutex
	events []sse.Event
}

func (f *fakeFeed) Publish(topic string, event sse.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.Topic = topic
	f.events = append(f.events, event)
}

func (f *fakeFeed) published() []sse.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sse.Event(nil), f.events...)
}
