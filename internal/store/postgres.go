// Package store implements the storage contract of the consensus engine on
// Postgres: reading a chunk's transcriptions and submitter reputation, and
// persisting computed outcomes.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"voice-consensus-engine/internal/models"
	"voice-consensus-engine/internal/observability/logging"
	"voice-consensus-engine/internal/observability/metrics"
)

// Store wraps a pgx connection pool.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, url string) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool, metrics: metrics.DefaultMetrics}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// FetchTranscriptions returns all transcriptions of a chunk in submission
// order.
func (s *Store) FetchTranscriptions(ctx context.Context, chunkID uuid.UUID) ([]models.Transcription, error) {
	start := time.Now()

	query := `
        SELECT id, chunk_id, submitter_id, raw_text, stated_confidence,
               created_at, quality_score, is_consensus
        FROM transcriptions
        WHERE chunk_id = $1
        ORDER BY created_at ASC, id ASC
    `

	rows, err := s.pool.Query(ctx, query, chunkID)
	if err != nil {
		s.metrics.RecordStore("fetch_transcriptions", err, time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to query transcriptions: %w", err)
	}
	defer rows.Close()

	var transcriptions []models.Transcription
	for rows.Next() {
		var t models.Transcription
		err := rows.Scan(
			&t.ID,
			&t.ChunkID,
			&t.SubmitterID,
			&t.RawText,
			&t.StatedConfidence,
			&t.CreatedAt,
			&t.QualityScore,
			&t.IsConsensus,
		)
		if err != nil {
			s.metrics.RecordStore("fetch_transcriptions", err, time.Since(start).Seconds())
			return nil, fmt.Errorf("failed to scan transcription: %w", err)
		}
		transcriptions = append(transcriptions, t)
	}
	if err := rows.Err(); err != nil {
		s.metrics.RecordStore("fetch_transcriptions", err, time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to read transcriptions: %w", err)
	}

	s.metrics.RecordStore("fetch_transcriptions", nil, time.Since(start).Seconds())
	return transcriptions, nil
}

// Lookup implements consensus.ReputationLookup against the submitter_stats
// table. Missing submitters get 0.5; out-of-range rows are clamped.
//
// The lookup deliberately swallows query errors and falls back to the
// default: reputation only modulates scores within a bounded band, and a
// recompute must not fail because a stats row was unavailable.
func (s *Store) Lookup(submitterID uuid.UUID) float64 {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var reputation float64
	err := s.pool.QueryRow(ctx,
		`SELECT reputation FROM submitter_stats WHERE submitter_id = $1`,
		submitterID,
	).Scan(&reputation)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			logger := logging.WithComponent("store")
			logger.Debug().
				Err(err).
				Str("submitterId", submitterID.String()).
				Msg("Reputation lookup failed, using default")
		}
		return 0.5
	}
	if reputation < 0 {
		return 0
	}
	if reputation > 1 {
		return 1
	}
	return reputation
}

// SaveOutcome persists a computed outcome in one transaction: the chunk
// result row is upserted and every transcription's quality score and
// consensus flag are updated. Nothing is written when any step fails, so a
// failed recompute leaves the previous result intact.
func (s *Store) SaveOutcome(ctx context.Context, outcome models.ChunkConsensusResult, updates []models.QualityUpdate) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.metrics.RecordStore("save_outcome", err, time.Since(start).Seconds())
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO chunk_consensus_results (
            chunk_id, consensus_text, confidence, participant_count, status, computed_at
        ) VALUES ($1, $2, $3, $4, $5, NOW())
        ON CONFLICT (chunk_id) DO UPDATE SET
            consensus_text = EXCLUDED.consensus_text,
            confidence = EXCLUDED.confidence,
            participant_count = EXCLUDED.participant_count,
            status = EXCLUDED.status,
            computed_at = EXCLUDED.computed_at
    `,
		outcome.ChunkID,
		outcome.ConsensusText,
		outcome.Confidence,
		outcome.ParticipantCount,
		outcome.Status,
	)
	if err != nil {
		s.metrics.RecordStore("save_outcome", err, time.Since(start).Seconds())
		return fmt.Errorf("failed to upsert consensus result: %w", err)
	}

	// Clear the flag first: at most one transcription per chunk may hold
	// is_consensus, and the representative can change between recomputes.
	_, err = tx.Exec(ctx,
		`UPDATE transcriptions SET is_consensus = FALSE WHERE chunk_id = $1 AND is_consensus`,
		outcome.ChunkID,
	)
	if err != nil {
		s.metrics.RecordStore("save_outcome", err, time.Since(start).Seconds())
		return fmt.Errorf("failed to clear consensus flags: %w", err)
	}

	for _, u := range updates {
		_, err := tx.Exec(ctx,
			`UPDATE transcriptions SET quality_score = $1, is_consensus = $2 WHERE id = $3`,
			u.QualityScore, u.IsConsensus, u.TranscriptionID,
		)
		if err != nil {
			s.metrics.RecordStore("save_outcome", err, time.Since(start).Seconds())
			return fmt.Errorf("failed to update transcription %s: %w", u.TranscriptionID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		s.metrics.RecordStore("save_outcome", err, time.Since(start).Seconds())
		return fmt.Errorf("failed to commit outcome: %w", err)
	}

	s.metrics.RecordStore("save_outcome", nil, time.Since(start).Seconds())
	return nil
}

// FetchResult returns the stored consensus result for a chunk, or nil when
// none has been computed yet.
func (s *Store) FetchResult(ctx context.Context, chunkID uuid.UUID) (*models.ChunkConsensusResult, error) {
	start := time.Now()

	var r models.ChunkConsensusResult
	err := s.pool.QueryRow(ctx, `
        SELECT chunk_id, consensus_text, confidence, participant_count, status
        FROM chunk_consensus_results
        WHERE chunk_id = $1
    `, chunkID).Scan(&r.ChunkID, &r.ConsensusText, &r.Confidence, &r.ParticipantCount, &r.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.metrics.RecordStore("fetch_result", nil, time.Since(start).Seconds())
			return nil, nil
		}
		s.metrics.RecordStore("fetch_result", err, time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to fetch consensus result: %w", err)
	}

	s.metrics.RecordStore("fetch_result", nil, time.Since(start).Seconds())
	return &r, nil
}

// ListNeedsReview returns chunks awaiting human review, oldest first. The
// admin tooling pages through this queue.
func (s *Store) ListNeedsReview(ctx context.Context, limit int) ([]models.ChunkConsensusResult, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, `
        SELECT chunk_id, consensus_text, confidence, participant_count, status
        FROM chunk_consensus_results
        WHERE status = $1
        ORDER BY computed_at ASC
        LIMIT $2
    `, models.StatusNeedsReview, limit)
	if err != nil {
		s.metrics.RecordStore("list_needs_review", err, time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to query review queue: %w", err)
	}
	defer rows.Close()

	var results []models.ChunkConsensusResult
	for rows.Next() {
		var r models.ChunkConsensusResult
		if err := rows.Scan(&r.ChunkID, &r.ConsensusText, &r.Confidence, &r.ParticipantCount, &r.Status); err != nil {
			s.metrics.RecordStore("list_needs_review", err, time.Since(start).Seconds())
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		s.metrics.RecordStore("list_needs_review", err, time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to read review queue: %w", err)
	}

	s.metrics.RecordStore("list_needs_review", nil, time.Since(start).Seconds())
	return results, nil
}
