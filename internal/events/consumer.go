package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-consensus-engine/internal/models"
	"voice-consensus-engine/internal/observability/logging"
	"voice-consensus-engine/internal/observability/metrics"
)

// RecomputeFunc handles one recompute trigger for a chunk.
type RecomputeFunc func(ctx context.Context, chunkID uuid.UUID, forced bool) error

// Consumer drains the recompute trigger topic and dispatches each chunk to
// the handler. The platform emits a trigger per new submission and per
// admin-forced recompute, keyed by chunk, so one partition never carries
// two interleaved triggers for different chunks out of order.
//
// Messages are committed after handling. A failed recompute is logged and
// committed anyway: the next submission for that chunk re-triggers the
// computation, and the stored result stays at its last known good state in
// the meantime.
type Consumer struct {
	reader  *kafka.Reader
	handle  RecomputeFunc
	topic   string
	metrics *metrics.Metrics
}

// ConsumerConfig holds trigger consumer configuration.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	Topic       string
	DialTimeout time.Duration
}

// NewConsumer creates a trigger consumer.
func NewConsumer(cfg ConsumerConfig, handle RecomputeFunc) *Consumer {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		Dialer:      &kafka.Dialer{Timeout: dialTimeout, DualStack: true},
		StartOffset: kafka.FirstOffset,
	})

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("groupId", cfg.GroupID).
		Msg("Kafka trigger consumer initialized")

	return &Consumer{
		reader:  reader,
		handle:  handle,
		topic:   cfg.Topic,
		metrics: metrics.DefaultMetrics,
	}
}

// Run consumes triggers until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch trigger: %w", err)
		}

		c.metrics.RecordKafkaConsumed(c.topic)

		chunkID, forced, err := decodeTrigger(msg.Value)
		if err != nil {
			// Malformed triggers are dropped: redelivery cannot fix them.
			log.Error().
				Err(err).
				Str("topic", c.topic).
				Str("key", string(msg.Key)).
				Msg("Dropping malformed trigger message")
			c.metrics.RecordKafkaConsumeError(c.topic, "malformed")
		} else if err := c.handle(ctx, chunkID, forced); err != nil {
			logger := logging.WithChunk(chunkID.String())
			logger.Error().
				Err(err).
				Bool("forced", forced).
				Msg("Recompute failed, chunk keeps its previous result")
			c.metrics.RecordKafkaConsumeError(c.topic, "handler")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("commit trigger: %w", err)
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// decodeTrigger parses a trigger payload and validates the chunk id.
func decodeTrigger(payload []byte) (uuid.UUID, bool, error) {
	var ev models.RecomputeRequested
	if err := json.Unmarshal(payload, &ev); err != nil {
		return uuid.Nil, false, fmt.Errorf("decode trigger: %w", err)
	}
	chunkID, err := uuid.Parse(ev.ChunkID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("invalid chunk id %q: %w", ev.ChunkID, err)
	}
	return chunkID, ev.Forced, nil
}
