// Package recompute orchestrates consensus recomputation: it serializes
// work per chunk, feeds stored transcriptions through the engine, persists
// the outcome, and emits the downstream events.
package recompute

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voice-consensus-engine/internal/consensus"
	"voice-consensus-engine/internal/models"
	"voice-consensus-engine/internal/observability/logging"
	"voice-consensus-engine/internal/observability/metrics"
)

// Storage is the read/write contract the service needs from the platform's
// database.
type Storage interface {
	FetchTranscriptions(ctx context.Context, chunkID uuid.UUID) ([]models.Transcription, error)
	FetchResult(ctx context.Context, chunkID uuid.UUID) (*models.ChunkConsensusResult, error)
	SaveOutcome(ctx context.Context, result models.ChunkConsensusResult, updates []models.QualityUpdate) error
}

// EventSink receives outcome events for downstream consumers.
type EventSink interface {
	PublishConsensusUpdated(ctx context.Context, chunkID string, event any) error
	PublishReviewFlagged(ctx context.Context, chunkID string, event any) error
}

// Service runs consensus recomputations.
type Service struct {
	engine  *consensus.Engine
	storage Storage
	events  EventSink
	locks   *keyedMutex
	metrics *metrics.Metrics
}

// NewService creates a recompute service.
func NewService(engine *consensus.Engine, storage Storage, events EventSink) *Service {
	return &Service{
		engine:  engine,
		storage: storage,
		events:  events,
		locks:   newKeyedMutex(),
		metrics: metrics.DefaultMetrics,
	}
}

// Recompute runs the full pipeline for one chunk: fetch, compute, persist,
// publish. Holding the per-chunk lock for the whole read-compute-write
// cycle keeps concurrent triggers for the same chunk from racing.
//
// Terminal statuses flip into each other only through a forced recompute.
// When an unforced trigger would move an ACCEPTED chunk to NEEDS_REVIEW or
// back, the outcome is rejected and the stored result kept; an admin forces
// the recompute to make the flip stick.
//
// Fail-closed: on any error the stored result is left untouched and the
// error is returned for the trigger system to log or retry.
func (s *Service) Recompute(ctx context.Context, chunkID uuid.UUID, forced bool) error {
	s.locks.Lock(chunkID)
	defer s.locks.Unlock(chunkID)

	start := time.Now()
	s.metrics.RecordRecomputeStart()

	logger := logging.WithRecompute(chunkID.String(), forced)

	previous, err := s.storage.FetchResult(ctx, chunkID)
	if err != nil {
		s.metrics.RecordRecomputeEnd(err, "fetch", time.Since(start).Seconds())
		return fmt.Errorf("fetch previous result for chunk %s: %w", chunkID, err)
	}

	transcriptions, err := s.storage.FetchTranscriptions(ctx, chunkID)
	if err != nil {
		s.metrics.RecordRecomputeEnd(err, "fetch", time.Since(start).Seconds())
		return fmt.Errorf("fetch transcriptions for chunk %s: %w", chunkID, err)
	}

	outcome, err := s.engine.Recompute(chunkID, transcriptions)
	if err != nil {
		logger.Error().Err(err).Msg("Consensus computation failed, previous result kept")
		s.metrics.RecordRecomputeEnd(err, "compute", time.Since(start).Seconds())
		return fmt.Errorf("compute consensus for chunk %s: %w", chunkID, err)
	}

	if previous != nil && !forced {
		if err := consensus.ValidateTransition(previous.Status, outcome.Result.Status); err != nil {
			logger.Warn().
				Str("previousStatus", previous.Status.String()).
				Str("computedStatus", outcome.Result.Status.String()).
				Msg("Status flip requires a forced recompute, previous result kept")
			s.metrics.RecordRecomputeEnd(err, "transition", time.Since(start).Seconds())
			return fmt.Errorf("status transition for chunk %s: %w", chunkID, err)
		}
	}

	if err := s.storage.SaveOutcome(ctx, outcome.Result, outcome.Updates); err != nil {
		s.metrics.RecordRecomputeEnd(err, "persist", time.Since(start).Seconds())
		return fmt.Errorf("persist outcome for chunk %s: %w", chunkID, err)
	}

	s.metrics.RecordRecomputeEnd(nil, "", time.Since(start).Seconds())
	s.metrics.RecordDecision(
		outcome.Result.Status.String(),
		outcome.Result.Confidence,
		outcome.ClusterSize,
		outcome.Result.ParticipantCount,
	)

	logger.Info().
		Str("status", outcome.Result.Status.String()).
		Float64("confidence", outcome.Result.Confidence).
		Int("participants", outcome.Result.ParticipantCount).
		Int("clusterSize", outcome.ClusterSize).
		Dur("duration", time.Since(start)).
		Msg("Consensus recomputed")

	s.publishOutcome(ctx, chunkID, outcome, logger)
	return nil
}

// publishOutcome emits the downstream events. Publish failures are logged
// but do not fail the recompute: the database already holds the outcome and
// the review queue stays queryable from there.
func (s *Service) publishOutcome(ctx context.Context, chunkID uuid.UUID, outcome *consensus.Outcome, logger zerolog.Logger) {
	now := time.Now().UnixMilli()

	updated := models.ConsensusUpdated{
		EventType:        "chunk.consensus.updated",
		ChunkID:          chunkID.String(),
		Status:           outcome.Result.Status.String(),
		Confidence:       outcome.Result.Confidence,
		ParticipantCount: outcome.Result.ParticipantCount,
		Timestamp:        now,
	}
	if outcome.Result.ConsensusText != nil {
		updated.ConsensusText = *outcome.Result.ConsensusText
	}
	if err := s.events.PublishConsensusUpdated(ctx, chunkID.String(), updated); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish consensus update")
	}

	if outcome.Result.Status != models.StatusNeedsReview {
		return
	}
	flagged := models.ReviewFlagged{
		EventType:        "chunk.review.flagged",
		ChunkID:          chunkID.String(),
		Confidence:       outcome.Result.Confidence,
		ParticipantCount: outcome.Result.ParticipantCount,
		Timestamp:        now,
	}
	if err := s.events.PublishReviewFlagged(ctx, chunkID.String(), flagged); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish review flag")
	}
}
