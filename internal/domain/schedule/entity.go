package schedule

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "15:04" or "15:04:05". Seconds are dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

// ClockOf returns the wall-clock time of t in t's own location.
// Callers convert to the tenant zone first.
func ClockOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant this time of day falls on the civil day of day.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// Entry is the schedule of one weekday for one tenant.
type Entry struct {
	ID            string
	TenantID      string
	DayOfWeek     int // 1=Monday, ..., 7=Sunday
	EntryCutoff   TimeOfDay
	DepartureTime TimeOfDay
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Resolution is the outcome of a schedule lookup. Found is false when the
// school does not operate that day.
type Resolution struct {
	Entry Entry
	Found bool
}

// ISOWeekday maps time.Weekday to 1=Monday, ..., 7=Sunday.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// CivilDay returns midnight of the calendar day t falls on in loc.
func CivilDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
