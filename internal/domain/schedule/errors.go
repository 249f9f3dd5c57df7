package schedule

import "errors"

var (
	ErrScheduleNotFound = errors.New("schedule entry not found")
	ErrInvalidTimeOfDay = errors.New("invalid time of day, use HH:MM")
	ErrInvalidWeekday   = errors.New("day of week must be between 1 and 7")
)
