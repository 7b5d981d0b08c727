// Package notifier reports terminal pipeline outcomes to a messaging
// channel. Delivery is strictly best-effort: every failure is logged and
// swallowed, and a run is notified at most once.
package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// Summary is the terminal report for one pipeline run.
type Summary struct {
	RunID    string
	Pipeline string
	Status   string
	Started  time.Time
	Ended    time.Time

	ValidRecords     int64
	RejectedRecords  int64
	CommittedBatches int64
	FailedBatches    int64

	// Daily carries the per-city forecasts included in the message body.
	Daily []model.DailySummary
}

// Text renders the summary as a single message payload.
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline %s finished: %s\n", s.Pipeline, s.Status)
	fmt.Fprintf(&b, "Run %s, %s\n", s.RunID, s.Ended.Sub(s.Started).Round(time.Second))
	fmt.Fprintf(&b, "Records: %d loaded, %d rejected\n", s.ValidRecords, s.RejectedRecords)
	fmt.Fprintf(&b, "Batches: %d committed, %d failed\n", s.CommittedBatches, s.FailedBatches)

	for _, d := range s.Daily {
		fmt.Fprintf(&b, "\n%s, forecast for %s\n", d.City, d.Date.Format("2006-01-02"))
		fmt.Fprintf(&b, "Temperature: min %.1f°C, max %.1f°C, avg %.1f°C\n", d.TempMin, d.TempMax, d.TempAvg)
		fmt.Fprintf(&b, "Precipitation: %.1f mm\n", d.PrecipitationTotal)
	}
	return b.String()
}

// Sender delivers one message to every known chat on the channel.
type Sender interface {
	ChatIDs(ctx context.Context) ([]int64, error)
	Send(ctx context.Context, chatID int64, text string) error
}

// Notifier fans a run summary out to the messaging channel.
type Notifier struct {
	sender  Sender
	limiter *rate.Limiter
	logger  log.Logger

	mu       sync.Mutex
	notified map[string]struct{}
}

// New creates a Notifier. A nil sender disables delivery (summaries are
// still logged), which keeps the pipeline runnable without a bot token.
func New(sender Sender, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Notifier{
		sender:   sender,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 5),
		logger:   logger,
		notified: make(map[string]struct{}),
	}
}

// Notify delivers the terminal summary. It never returns an error and never
// blocks on the rate limiter: when the channel is saturated the notification
// is dropped with a log entry rather than stalling the run.
func (n *Notifier) Notify(ctx context.Context, summary *Summary) {
	n.mu.Lock()
	if _, done := n.notified[summary.RunID]; done {
		n.mu.Unlock()
		n.logger.Infow("Run already notified, skipping", "runID", summary.RunID)
		return
	}
	n.notified[summary.RunID] = struct{}{}
	n.mu.Unlock()

	if n.sender == nil {
		n.logger.Infow("Notification channel not configured",
			"runID", summary.RunID, "status", summary.Status)
		return
	}

	if !n.limiter.Allow() {
		n.logger.Warnw("Notification rate-limited, dropping", "runID", summary.RunID)
		return
	}

	chatIDs, err := n.sender.ChatIDs(ctx)
	if err != nil {
		n.logger.Errorw("Failed to resolve notification chats", "runID", summary.RunID, "error", err)
		return
	}
	if len(chatIDs) == 0 {
		n.logger.Infow("No notification recipients known", "runID", summary.RunID)
		return
	}

	text := summary.Text()
	delivered, failed := 0, 0
	for _, chatID := range chatIDs {
		if err := n.sender.Send(ctx, chatID, text); err != nil {
			failed++
			n.logger.Errorw("Notification delivery failed",
				"runID", summary.RunID, "chatID", chatID, "error", err)
			continue
		}
		delivered++
	}

	n.logger.Infow("Run notification sent",
		"runID", summary.RunID, "status", summary.Status,
		"delivered", delivered, "failed", failed)
}
