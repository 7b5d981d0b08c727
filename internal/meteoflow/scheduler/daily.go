package scheduler

import "time"

// Daily schedules one run per day at a fixed wall-clock time.
type Daily struct {
	Hour   int
	Minute int
}

// At creates a Daily schedule.
func At(hour, minute int) Daily {
	return Daily{Hour: hour, Minute: minute}
}

// Next returns the next occurrence of the configured time after the given
// time.
func (d Daily) Next(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), d.Hour, d.Minute, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
