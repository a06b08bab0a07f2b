// Package kafka publishes completed lookup reports to a Kafka topic for
// downstream analytics consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/pastcast/climatology/internal/domain"
)

// Writer produces report records to a Kafka topic.
// It implements climatology.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the report topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes one completed lookup and writes it to the topic.
func (w *Writer) Publish(ctx context.Context, rec domain.ReportRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ReportRecord into a Kafka message. The key
// groups lookups for the same date and rounded location on one partition.
func serializeToMessage(rec domain.ReportRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report record: %w", err)
	}
	key := fmt.Sprintf("%02d-%02d:%.1f:%.1f", rec.Date.Month, rec.Date.Day, rec.Lat, rec.Lon)
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "years_back", Value: []byte(fmt.Sprintf("%d", rec.YearsBack))},
			{Key: "generated_at", Value: []byte(rec.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
