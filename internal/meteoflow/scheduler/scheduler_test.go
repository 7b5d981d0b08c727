package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avolkhov/meteoflow/internal/meteoflow/scheduler"
)

func TestIntervalNext(t *testing.T) {
	after := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	next := scheduler.Every(time.Minute).Next(after)
	require.Equal(t, after.Add(time.Minute), next)
}

func TestIntervalZeroDurationStopsScheduling(t *testing.T) {
	next := scheduler.Every(0).Next(time.Now())
	require.True(t, next.IsZero())
}

func TestDailyNextSameDay(t *testing.T) {
	after := time.Date(2025, 6, 1, 5, 30, 0, 0, time.UTC)
	next := scheduler.At(7, 0).Next(after)
	require.Equal(t, time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC), next)
}

func TestDailyNextRollsToTomorrow(t *testing.T) {
	after := time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)
	next := scheduler.At(7, 0).Next(after)
	require.Equal(t, time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC), next)
}

func TestDailyKeepsLocation(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	after := time.Date(2025, 6, 1, 23, 45, 0, 0, msk)
	next := scheduler.At(7, 0).Next(after)
	require.Equal(t, time.Date(2025, 6, 2, 7, 0, 0, 0, msk), next)
}
