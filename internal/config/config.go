// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"voice-consensus-engine/internal/consensus"
)

// Configuration holds all service configuration.
type Configuration struct {
	Service       ServiceConfig
	Consensus     ConsensusConfig
	Kafka         KafkaConfig
	Postgres      PostgresConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity settings.
type ServiceConfig struct {
	Principal string
}

// ConsensusConfig holds the engine thresholds.
type ConsensusConfig struct {
	MinimumCount        int
	AgreementThreshold  float64
	AcceptThreshold     float64
	ReputationFloor     float64
	ReputationWeight    float64
	ConfidenceGap       float64
	ConfidencePenalty   float64
	DefaultReputation   float64
	TerminalPunctuation string
}

// KafkaConfig holds event transport settings.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	GroupID        string
	TopicTrigger   string
	TopicConsensus string
	TopicReview    string
	Principal      string
	DialTimeout    time.Duration
}

// PostgresConfig holds storage settings.
type PostgresConfig struct {
	URL string
}

// ObservabilityConfig holds logging, metrics, and worker settings.
type ObservabilityConfig struct {
	LogLevel string
	HTTPAddr string
	Workers  int
}

// Load reads configuration from the environment, falling back to defaults
// on missing or unparsable values. A .env file is honored when present.
func Load() *Configuration {
	_ = godotenv.Load()

	defaults := consensus.DefaultParams()

	return &Configuration{
		Service: ServiceConfig{
			Principal: envOrDefault("SERVICE_PRINCIPAL", "svc-consensus-engine"),
		},
		Consensus: ConsensusConfig{
			MinimumCount:        envOrDefaultInt("CONSENSUS_MINIMUM_COUNT", defaults.MinimumCount),
			AgreementThreshold:  envOrDefaultFloat("CONSENSUS_AGREEMENT_THRESHOLD", defaults.AgreementThreshold),
			AcceptThreshold:     envOrDefaultFloat("CONSENSUS_ACCEPT_THRESHOLD", defaults.AcceptThreshold),
			ReputationFloor:     envOrDefaultFloat("CONSENSUS_REPUTATION_FLOOR", defaults.ReputationFloor),
			ReputationWeight:    envOrDefaultFloat("CONSENSUS_REPUTATION_WEIGHT", defaults.ReputationWeight),
			ConfidenceGap:       envOrDefaultFloat("CONSENSUS_CONFIDENCE_GAP", defaults.ConfidenceGap),
			ConfidencePenalty:   envOrDefaultFloat("CONSENSUS_CONFIDENCE_PENALTY", defaults.ConfidencePenalty),
			DefaultReputation:   envOrDefaultFloat("CONSENSUS_DEFAULT_REPUTATION", defaults.DefaultReputation),
			TerminalPunctuation: envOrDefault("CONSENSUS_TERMINAL_PUNCTUATION", defaults.TerminalPunctuation),
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        envOrDefaultList("KAFKA_BROKERS", nil),
			GroupID:        envOrDefault("KAFKA_GROUP_ID", "consensus-engine"),
			TopicTrigger:   envOrDefault("KAFKA_TOPIC_TRIGGER", "chunk.recompute.requested"),
			TopicConsensus: envOrDefault("KAFKA_TOPIC_CONSENSUS", "chunk.consensus.updated"),
			TopicReview:    envOrDefault("KAFKA_TOPIC_REVIEW", "chunk.review.flagged"),
			Principal:      envOrDefault("KAFKA_PRINCIPAL", envOrDefault("SERVICE_PRINCIPAL", "svc-consensus-engine")),
			DialTimeout:    envOrDefaultDuration("KAFKA_DIAL_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			URL: envOrDefault("POSTGRES_URL", "postgres://localhost:5432/voicedata"),
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
			HTTPAddr: envOrDefault("OBSERVABILITY_HTTP_ADDR", ":9090"),
			Workers:  envOrDefaultInt("RECOMPUTE_WORKERS", 4),
		},
	}
}

// Params maps the consensus section onto engine parameters.
func (c *Configuration) Params() consensus.Params {
	return consensus.Params{
		MinimumCount:        c.Consensus.MinimumCount,
		AgreementThreshold:  c.Consensus.AgreementThreshold,
		AcceptThreshold:     c.Consensus.AcceptThreshold,
		ReputationFloor:     c.Consensus.ReputationFloor,
		ReputationWeight:    c.Consensus.ReputationWeight,
		ConfidenceGap:       c.Consensus.ConfidenceGap,
		ConfidencePenalty:   c.Consensus.ConfidencePenalty,
		DefaultReputation:   c.Consensus.DefaultReputation,
		TerminalPunctuation: c.Consensus.TerminalPunctuation,
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
