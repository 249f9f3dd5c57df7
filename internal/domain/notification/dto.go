package notification

import (
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/validator"
)

// ============= Requests =============

// DispatchRequest pokes the dispatcher about a committed outbox entry.
type DispatchRequest struct {
	OutboxID   string
	TenantID   string
	StudentID  string
	Kind       Kind
	OccurredAt time.Time
}

type OutboxFilter struct {
	TenantID string  `json:"-" validate:"required"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=pending processing sent failed skipped"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

func (f *OutboxFilter) Validate() error {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	return validator.Struct(f)
}

// ============= Responses =============

type OutboxResponse struct {
	ID            string     `json:"id"`
	StudentID     string     `json:"student_id"`
	RecordID      string     `json:"record_id"`
	Kind          Kind       `json:"kind"`
	OccurredAt    time.Time  `json:"occurred_at"`
	Status        Status     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastError     *string    `json:"last_error,omitempty"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type ListOutboxResponse struct {
	Entries  []OutboxResponse `json:"entries"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

type RelayResult struct {
	Claimed int `json:"claimed"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}
