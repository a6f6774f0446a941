package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/district-weather-monitor/internal/config"
	"github.com/couchcryptid/district-weather-monitor/internal/domain"
	"github.com/couchcryptid/district-weather-monitor/internal/pipeline"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes the alerts persisted in each cycle to the alert feed topic.
// It implements pipeline.CycleListener.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

var _ pipeline.CycleListener = (*Writer)(nil)

// NewWriter creates a Kafka producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// CycleCompleted publishes the cycle's alerts in a single WriteMessages call.
func (w *Writer) CycleCompleted(ctx context.Context, report pipeline.CycleReport, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i := range alerts {
		msg, err := serializeToMessage(alerts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d alerts: %w", len(msgs), err)
	}
	w.logger.Debug("alerts published", "count", len(msgs), "cycle_started_at", report.StartedAt)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Alert into a Kafka message keyed by district,
// so a district's alerts stay ordered within one partition.
func serializeToMessage(alert domain.Alert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.DistrictID),
		Value: data,
		Time:  alert.Timestamp,
		Headers: []kafkago.Header{
			{Key: "severity", Value: []byte(alert.Severity.String())},
			{Key: "timestamp", Value: []byte(alert.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
