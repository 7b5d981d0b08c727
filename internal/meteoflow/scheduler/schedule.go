// Package scheduler decides when pipeline runs happen.
package scheduler

import "time"

// Schedule decides when the next run should occur after the given time. A
// zero return stops scheduling.
type Schedule interface {
	Next(after time.Time) time.Time
}
