package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const outboxColumns = `
	id, tenant_id, student_id, record_id, kind, occurred_at, status, attempts,
	last_error, next_attempt_at, locked_until, sent_at, created_at, updated_at`

// claimable matches entries that are due, or whose worker lease ran out.
const claimable = `
	attempts < $3
	AND (
		(status IN ('pending', 'failed') AND next_attempt_at <= $1)
		OR (status = 'processing' AND locked_until < $1)
	)`

type outboxRepository struct {
	db *database.DB
}

func scanOutbox(row pgx.Row) (notification.OutboxEntry, error) {
	var e notification.OutboxEntry
	err := row.Scan(
		&e.ID, &e.TenantID, &e.StudentID, &e.RecordID, &e.Kind, &e.OccurredAt, &e.Status, &e.Attempts,
		&e.LastError, &e.NextAttemptAt, &e.LockedUntil, &e.SentAt, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func collectOutbox(rows pgx.Rows) ([]notification.OutboxEntry, error) {
	defer rows.Close()

	var entries []notification.OutboxEntry
	for rows.Next() {
		e, err := scanOutbox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Enqueue implements notification.OutboxRepository.
func (r *outboxRepository) Enqueue(ctx context.Context, entry notification.OutboxEntry) (notification.OutboxEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO notification_outbox (
			id, tenant_id, student_id, record_id, kind, occurred_at, status, next_attempt_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, 'pending', $6
		) RETURNING ` + outboxColumns

	created, err := scanOutbox(q.QueryRow(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.StudentID,
		entry.RecordID,
		entry.Kind,
		entry.OccurredAt,
	))
	if err != nil {
		return notification.OutboxEntry{}, fmt.Errorf("failed to enqueue notification: %w", err)
	}

	return created, nil
}

// Claim implements notification.OutboxRepository.
func (r *outboxRepository) Claim(ctx context.Context, id string, now time.Time, lease time.Duration, maxAttempts int) (*notification.OutboxEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notification_outbox
		SET status = 'processing', attempts = attempts + 1, locked_until = $2, updated_at = now()
		WHERE id = $4 AND ` + claimable + `
		RETURNING ` + outboxColumns

	e, err := scanOutbox(q.QueryRow(ctx, query, now, now.Add(lease), maxAttempts, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim outbox entry: %w", err)
	}

	return &e, nil
}

// ClaimDue implements notification.OutboxRepository.
func (r *outboxRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, maxAttempts, limit int) ([]notification.OutboxEntry, error) {
	q := GetQuerier(ctx, r.db)

	// SKIP LOCKED lets several relays run without claiming the same rows.
	query := `
		UPDATE notification_outbox
		SET status = 'processing', attempts = attempts + 1, locked_until = $2, updated_at = now()
		WHERE id IN (
			SELECT id FROM notification_outbox
			WHERE ` + claimable + `
			ORDER BY next_attempt_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns

	rows, err := q.Query(ctx, query, now, now.Add(lease), maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due outbox entries: %w", err)
	}

	return collectOutbox(rows)
}

// MarkSent implements notification.OutboxRepository.
func (r *outboxRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notification_outbox
		SET status = 'sent', sent_at = $2, locked_until = NULL, last_error = NULL, updated_at = now()
		WHERE id = $1
	`

	return r.exec(ctx, q, query, id, at)
}

// MarkFailed implements notification.OutboxRepository.
func (r *outboxRepository) MarkFailed(ctx context.Context, id string, reason string, nextAttemptAt time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notification_outbox
		SET status = 'failed', last_error = $2, next_attempt_at = $3, locked_until = NULL, updated_at = now()
		WHERE id = $1
	`

	return r.exec(ctx, q, query, id, reason, nextAttemptAt)
}

// MarkSkipped implements notification.OutboxRepository.
func (r *outboxRepository) MarkSkipped(ctx context.Context, id string, reason string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE notification_outbox
		SET status = 'skipped', last_error = $2, locked_until = NULL, updated_at = now()
		WHERE id = $1
	`

	return r.exec(ctx, q, query, id, reason)
}

func (r *outboxRepository) exec(ctx context.Context, q database.Querier, query string, args ...any) error {
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update outbox entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrOutboxNotFound
	}
	return nil
}

// RecordDelivery implements notification.OutboxRepository.
func (r *outboxRepository) RecordDelivery(ctx context.Context, d notification.Delivery) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO notification_deliveries (id, outbox_id, tenant_id, relation, address, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if _, err := q.Exec(ctx, query, d.ID, d.OutboxID, d.TenantID, d.Relation, d.Address, d.Status, d.Error, d.CreatedAt); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// DeliveredRelations implements notification.OutboxRepository.
func (r *outboxRepository) DeliveredRelations(ctx context.Context, outboxID string) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT DISTINCT relation
		FROM notification_deliveries
		WHERE outbox_id = $1
		  AND status = 'sent'
	`

	rows, err := q.Query(ctx, query, outboxID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}

	relations, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan deliveries: %w", err)
	}
	return relations, nil
}

// List implements notification.OutboxRepository.
func (r *outboxRepository) List(ctx context.Context, filter notification.OutboxFilter) ([]notification.OutboxEntry, int64, error) {
	q := GetQuerier(ctx, r.db)

	conditions := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM notification_outbox WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count outbox entries: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	args = append(args, filter.PageSize, offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM notification_outbox
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, outboxColumns, where, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list outbox entries: %w", err)
	}

	entries, err := collectOutbox(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func NewOutboxRepository(db *database.DB) notification.OutboxRepository {
	return &outboxRepository{db: db}
}

type templateRepository struct {
	db *database.DB
}

// GetTemplate implements notification.TemplateRepository.
func (r *templateRepository) GetTemplate(ctx context.Context, tenantID string, kind notification.Kind) (notification.Template, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT tenant_id, kind, subject, body
		FROM message_templates
		WHERE tenant_id = $1
		  AND kind = $2
	`

	var t notification.Template
	if err := q.QueryRow(ctx, query, tenantID, kind).Scan(&t.TenantID, &t.Kind, &t.Subject, &t.Body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notification.Template{}, notification.ErrTemplateNotFound
		}
		return notification.Template{}, fmt.Errorf("failed to get message template: %w", err)
	}

	return t, nil
}

func NewTemplateRepository(db *database.DB) notification.TemplateRepository {
	return &templateRepository{db: db}
}
