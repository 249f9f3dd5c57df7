package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const microsPerMinute = int64(60 * 1000 * 1000)

type scheduleRepository struct {
	db *database.DB
}

func timeOfDay(t pgtype.Time) schedule.TimeOfDay {
	minutes := int(t.Microseconds / microsPerMinute)
	return schedule.TimeOfDay{Hour: minutes / 60, Minute: minutes % 60}
}

func scanScheduleEntry(row pgx.Row) (schedule.Entry, error) {
	var (
		e                 schedule.Entry
		cutoff, departure pgtype.Time
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.DayOfWeek, &cutoff, &departure, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return schedule.Entry{}, err
	}
	e.EntryCutoff = timeOfDay(cutoff)
	e.DepartureTime = timeOfDay(departure)
	return e, nil
}

// GetByWeekday implements schedule.Repository.
func (r *scheduleRepository) GetByWeekday(ctx context.Context, tenantID string, dayOfWeek int) (schedule.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, day_of_week, entry_cutoff, departure_time, is_active, created_at, updated_at
		FROM schedule_entries
		WHERE tenant_id = $1
		  AND day_of_week = $2
	`

	e, err := scanScheduleEntry(q.QueryRow(ctx, query, tenantID, dayOfWeek))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Entry{}, schedule.ErrScheduleNotFound
		}
		return schedule.Entry{}, fmt.Errorf("failed to get schedule entry: %w", err)
	}

	return e, nil
}

// ListByTenant implements schedule.Repository.
func (r *scheduleRepository) ListByTenant(ctx context.Context, tenantID string) ([]schedule.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, day_of_week, entry_cutoff, departure_time, is_active, created_at, updated_at
		FROM schedule_entries
		WHERE tenant_id = $1
		ORDER BY day_of_week
	`

	rows, err := q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule entries: %w", err)
	}
	defer rows.Close()

	var entries []schedule.Entry
	for rows.Next() {
		e, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func NewScheduleRepository(db *database.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}
