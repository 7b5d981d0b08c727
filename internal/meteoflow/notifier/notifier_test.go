package notifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/meteoflow/notifier"
)

// fakeSender records deliveries and can fail on demand.
type fakeSender struct {
	mu      sync.Mutex
	chats   []int64
	sent    map[int64][]string
	sendErr error
}

func newFakeSender(chats ...int64) *fakeSender {
	return &fakeSender{chats: chats, sent: make(map[int64][]string)}
}

func (s *fakeSender) ChatIDs(_ context.Context) ([]int64, error) {
	return s.chats, nil
}

func (s *fakeSender) Send(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}

func (s *fakeSender) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, msgs := range s.sent {
		n += len(msgs)
	}
	return n
}

func testSummary(runID string) *notifier.Summary {
	return &notifier.Summary{
		RunID:            runID,
		Pipeline:         "weather-etl",
		Status:           "Succeeded",
		Started:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Ended:            time.Date(2025, 6, 1, 12, 1, 30, 0, time.UTC),
		ValidRecords:     48,
		RejectedRecords:  2,
		CommittedBatches: 4,
	}
}

func TestNotifyFansOutToEveryChat(t *testing.T) {
	sender := newFakeSender(100, 200, 300)
	n := notifier.New(sender, nil)

	n.Notify(context.Background(), testSummary("run-1"))
	require.Equal(t, 3, sender.total())
}

func TestNotifyAtMostOncePerRun(t *testing.T) {
	sender := newFakeSender(100)
	n := notifier.New(sender, nil)

	summary := testSummary("run-1")
	n.Notify(context.Background(), summary)
	n.Notify(context.Background(), summary)
	n.Notify(context.Background(), summary)

	require.Equal(t, 1, sender.total())
}

func TestNotifySwallowsDeliveryFailures(t *testing.T) {
	sender := newFakeSender(100)
	sender.sendErr = errors.New("telegram is down")
	n := notifier.New(sender, nil)

	// Must not panic or propagate; the failed run still counts as notified.
	n.Notify(context.Background(), testSummary("run-1"))

	sender.sendErr = nil
	n.Notify(context.Background(), testSummary("run-1"))
	require.Zero(t, sender.total())
}

func TestNotifyNilSenderIsDisabled(t *testing.T) {
	n := notifier.New(nil, nil)
	n.Notify(context.Background(), testSummary("run-1"))
}

func TestSummaryTextCarriesForecastAndCounts(t *testing.T) {
	summary := testSummary("run-1")
	summary.Daily = []model.DailySummary{{
		City:               "Moscow",
		Date:               time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		TempMin:            11.0,
		TempMax:            24.0,
		TempAvg:            17.5,
		PrecipitationTotal: 1.2,
	}}

	text := summary.Text()
	require.Contains(t, text, "weather-etl finished: Succeeded")
	require.Contains(t, text, "48 loaded, 2 rejected")
	require.Contains(t, text, "Moscow, forecast for 2025-06-02")
	require.Contains(t, text, "min 11.0°C, max 24.0°C, avg 17.5°C")
}
