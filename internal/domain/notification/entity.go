package notification

import (
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
)

// Kind is what happened to the student: a classification or a departure.
type Kind string

const (
	KindOnTime   Kind = Kind(attendance.ClassOnTime)
	KindLate     Kind = Kind(attendance.ClassLate)
	KindAbsent   Kind = Kind(attendance.ClassAbsent)
	KindDeparted Kind = "departed"
)

// AllKinds returns every kind guardians can be notified about
func AllKinds() []Kind {
	return []Kind{KindOnTime, KindLate, KindAbsent, KindDeparted}
}

func KindOf(c attendance.Classification) Kind {
	return Kind(c)
}

func (k Kind) Label() string {
	if k == KindDeparted {
		return "Departed"
	}
	return attendance.Classification(k).Label()
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

var StatusValues = []string{
	string(StatusPending),
	string(StatusProcessing),
	string(StatusSent),
	string(StatusFailed),
	string(StatusSkipped),
}

// OutboxEntry is a dispatch request persisted together with the attendance
// record that caused it.
type OutboxEntry struct {
	ID            string
	TenantID      string
	StudentID     string
	RecordID      string
	Kind          Kind
	OccurredAt    time.Time
	Status        Status
	Attempts      int
	LastError     *string
	NextAttemptAt time.Time
	LockedUntil   *time.Time
	SentAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Delivery records one send attempt to one guardian channel.
type Delivery struct {
	ID        string
	OutboxID  string
	TenantID  string
	Relation  string
	Address   string
	Status    DeliveryStatus
	Error     *string
	CreatedAt time.Time
}

// Template is a tenant override of the default message for a kind.
type Template struct {
	TenantID string
	Kind     Kind
	Subject  string
	Body     string
}

// Channel is one guardian address.
type Channel struct {
	Relation string
	Name     string
	Address  string
}

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}
