package scheduler

import (
	"time"
)

// IntervalSchedule fires at Start and then every EveryDays calendar days in Start's location.
// It implements cron.Schedule.
type IntervalSchedule struct {
	Start     time.Time
	EveryDays int
}

// Next returns the first occurrence strictly after t, or the zero time when the schedule never fires.
func (s IntervalSchedule) Next(t time.Time) time.Time {
	if s.EveryDays <= 0 || s.Start.IsZero() {
		return time.Time{}
	}
	if t.Before(s.Start) {
		return s.Start
	}

	// Approximate with 24h days, then correct for DST shifts of the wall clock.
	elapsedDays := int(t.Sub(s.Start) / (24 * time.Hour))
	k := elapsedDays / s.EveryDays
	next := s.Start.AddDate(0, 0, k*s.EveryDays)
	for k > 0 && next.After(t) {
		k--
		next = s.Start.AddDate(0, 0, k*s.EveryDays)
	}
	for !next.After(t) {
		k++
		next = s.Start.AddDate(0, 0, k*s.EveryDays)
	}
	return next
}
