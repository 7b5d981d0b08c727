// Package messaging publishes pipeline run events to Kafka. Publishing is
// best-effort observability: callers log and continue on error.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"k8s.io/klog/v2"

	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// kafkaLogger adapts kafka-go's logger to klog verbosity levels.
type kafkaLogger struct {
	v int32
}

func (l *kafkaLogger) Printf(format string, args ...any) {
	klog.V(klog.Level(l.v)).Infof(format, args...)
}

// RunEvent is one pipeline lifecycle event.
type RunEvent struct {
	EventID   string    `json:"event_id"`
	RunID     string    `json:"run_id"`
	Pipeline  string    `json:"pipeline"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	ValidRecords     int64 `json:"valid_records,omitempty"`
	RejectedRecords  int64 `json:"rejected_records,omitempty"`
	CommittedBatches int64 `json:"committed_batches,omitempty"`
	FailedBatches    int64 `json:"failed_batches,omitempty"`
}

// Publisher writes run events to a Kafka topic, keyed by run id so one run's
// events stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer
	logger log.Logger
}

// NewPublisher creates a Publisher. Empty brokers return nil, which callers
// treat as a disabled event stream.
func NewPublisher(brokers []string, topic string, logger log.Logger) *Publisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	if logger == nil {
		logger = log.Default()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Logger:       &kafkaLogger{v: 4},
		ErrorLogger:  &kafkaLogger{v: 1},
	}
	return &Publisher{writer: writer, logger: logger}
}

// Publish sends one event.
func (p *Publisher) Publish(ctx context.Context, event *RunEvent) error {
	if p == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RunID),
		Value: value,
	})
	if err != nil {
		return err
	}

	p.logger.Debugw("Published run event",
		"runID", event.RunID, "stage", event.Stage, "status", event.Status)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
