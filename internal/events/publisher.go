// Package events provides Kafka event publishing and trigger consumption.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-consensus-engine/internal/observability/metrics"
)

// Publisher publishes consensus outcome events to separate Kafka topics:
// one for every consensus update, one for chunks flagged for review.
type Publisher struct {
	writerConsensus *kafka.Writer
	writerReview    *kafka.Writer
	principal       string
	topicConsensus  string
	topicReview     string
	enabled         bool
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicConsensus string
	TopicReview    string
	Principal      string
	DialTimeout    time.Duration
	Enabled        bool
}

// New creates a Kafka publisher. When disabled or without brokers it runs
// in log-only mode: every publish succeeds and is only logged.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicConsensus: cfg.TopicConsensus,
			topicReview:    cfg.TopicReview,
			enabled:        false,
			metrics:        m,
		}
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}

	// Longer dial timeout for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   dialTimeout,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerConsensus := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicConsensus,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerReview := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicReview,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicConsensus", cfg.TopicConsensus).
		Str("topicReview", cfg.TopicReview).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerConsensus: writerConsensus,
		writerReview:    writerReview,
		principal:       cfg.Principal,
		topicConsensus:  cfg.TopicConsensus,
		topicReview:     cfg.TopicReview,
		enabled:         true,
		metrics:         m,
	}
}

// PublishConsensusUpdated publishes a consensus-updated event, keyed by
// chunk so per-chunk ordering is preserved.
func (p *Publisher) PublishConsensusUpdated(ctx context.Context, chunkID string, event any) error {
	return p.publish(ctx, p.writerConsensus, p.topicConsensus, "consensus", chunkID, event)
}

// PublishReviewFlagged publishes a review-flagged event for the admin
// review queue.
func (p *Publisher) PublishReviewFlagged(ctx context.Context, chunkID string, event any) error {
	return p.publish(ctx, p.writerReview, p.topicReview, "review", chunkID, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerConsensus != nil {
		if e := p.writerConsensus.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing consensus writer")
			err = e
		}
	}
	if p.writerReview != nil {
		if e := p.writerReview.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing review writer")
			err = e
		}
	}
	return err
}
