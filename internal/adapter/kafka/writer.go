package kafka

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/config"
	"github.com/couchcryptid/gistemp-grid/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces cell messages to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Messages
// are hashed by key so every generation of a cell lands on the same partition
// and compaction keeps only the latest.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    500,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes a whole generation of cells in a single WriteMessages
// call.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msgs[i] = mapOutputEventToMessage(events[i])
	}
	start := time.Now()
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("published cell batch", "size", len(msgs), "duration", time.Since(start))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// mapOutputEventToMessage converts a domain OutputEvent into a Kafka message.
// Headers are emitted in key order so the message bytes are reproducible.
func mapOutputEventToMessage(ev domain.OutputEvent) kafkago.Message {
	keys := make([]string, 0, len(ev.Headers))
	for k := range ev.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(ev.Headers[k])})
	}
	return kafkago.Message{
		Key:     ev.Key,
		Value:   ev.Value,
		Headers: headers,
	}
}
