package schedule

import (
	"context"
	"time"
)

// Resolver turns a calendar day into the schedule that applies to it.
type Resolver interface {
	// Resolve derives the weekday of day in loc and looks up the active entry.
	// A missing or inactive entry is reported as Found=false, not as an error.
	Resolve(ctx context.Context, tenantID string, day time.Time, loc *time.Location) (Resolution, error)
}
