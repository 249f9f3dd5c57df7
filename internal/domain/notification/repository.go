package notification

import (
	"context"
	"time"
)

type OutboxRepository interface {
	// Enqueue inserts a pending entry. Called inside the attendance transaction.
	Enqueue(ctx context.Context, entry OutboxEntry) (OutboxEntry, error)

	// Claim leases a single entry if it is due. It returns nil when another
	// worker holds it, it is finished, or it has used maxAttempts.
	Claim(ctx context.Context, id string, now time.Time, lease time.Duration, maxAttempts int) (*OutboxEntry, error)

	// ClaimDue leases up to limit entries that are pending, failed and due, or
	// whose lease has expired.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, maxAttempts, limit int) ([]OutboxEntry, error)

	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string, nextAttemptAt time.Time) error
	MarkSkipped(ctx context.Context, id string, reason string) error

	RecordDelivery(ctx context.Context, delivery Delivery) error

	// DeliveredRelations lists the relations that already received this entry,
	// so a retry does not message them twice.
	DeliveredRelations(ctx context.Context, outboxID string) ([]string, error)

	List(ctx context.Context, filter OutboxFilter) ([]OutboxEntry, int64, error)
}

type TemplateRepository interface {
	// GetTemplate returns ErrTemplateNotFound when the tenant has no override.
	GetTemplate(ctx context.Context, tenantID string, kind Kind) (Template, error)
}
