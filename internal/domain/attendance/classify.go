package attendance

import "github.com/cmlabs-hris/school-attendance-go/internal/domain/schedule"

// Classify is the single place where lateness is decided: an entry at or
// before the cutoff minute is on time, anything after is late.
func Classify(event, cutoff schedule.TimeOfDay) Classification {
	if event.Minutes() <= cutoff.Minutes() {
		return ClassOnTime
	}
	return ClassLate
}
