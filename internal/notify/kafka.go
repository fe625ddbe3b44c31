package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/JonMunkholm/leadsync/internal/core"
)

// DefaultOutcomeTopic receives one message per reconciled row.
const DefaultOutcomeTopic = "leadsync.outcomes"

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink relays cycle events to a Kafka topic, keyed by lead key so
// events for one lead stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewKafkaSink builds a synchronous producer for topic.
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) *KafkaSink {
	if topic == "" {
		topic = DefaultOutcomeTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaSink{writer: w, topic: topic, logger: logger}
}

// Publish writes the events of report in one batch.
func (k *KafkaSink) Publish(ctx context.Context, report core.CycleReport) error {
	msgs, err := buildMessages(report)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		k.logger.Error("failed to publish cycle events",
			"cycle_id", report.ID,
			"topic", k.topic,
			"events", len(msgs),
			"error", err,
		)
		return fmt.Errorf("kafka publish: %w", err)
	}

	k.logger.Debug("cycle events published", "cycle_id", report.ID, "topic", k.topic, "events", len(msgs))
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

func buildMessages(report core.CycleReport) ([]kafka.Message, error) {
	events := EventsFromReport(report)
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshal event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.Key.LeadDate + "|" + ev.Key.Phone.String()),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(ev.Action)},
				{Key: "cycle-id", Value: []byte(ev.CycleID)},
			},
		})
	}
	return msgs, nil
}
