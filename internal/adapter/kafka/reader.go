package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/config"
	"github.com/couchcryptid/gistemp-grid/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes station records from one partition of the source topic.
// It implements pipeline.BatchExtractor.
//
// The reader is not part of a consumer group and never commits: the station
// table lives in memory, so every start replays the compacted topic from the
// first offset.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a Kafka consumer for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   cfg.KafkaBrokers,
		Topic:     cfg.KafkaSourceTopic,
		Partition: cfg.KafkaSourcePartition,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   cfg.BatchFlushInterval,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch reads up to batchSize messages. It returns early with a
// partial, possibly empty, batch once the flush interval passes without a
// full batch, so an empty result means the source is caught up.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	batch := make([]domain.RawEvent, 0, batchSize)
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(fetchCtx)
		if err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return batch, nil
			}
			return batch, err
		}
		batch = append(batch, mapMessageToRawEvent(msg))
	}

	r.logger.Debug("extracted station batch", "size", len(batch), "offset", r.reader.Offset())
	return batch, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawEvent converts a kafka-go message to a domain RawEvent.
func mapMessageToRawEvent(msg kafkago.Message) domain.RawEvent {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawEvent{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
