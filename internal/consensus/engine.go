package consensus

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"voice-consensus-engine/internal/models"
)

// Error taxonomy for a consensus computation. The caller owns retries; the
// engine never retries and never emits a partial outcome on error.
var (
	// ErrInvalidInput - nothing usable was passed (no transcriptions at
	// all). Recoverable defects such as empty texts or out-of-range
	// reputation values are filtered or clamped instead of raised.
	ErrInvalidInput = errors.New("invalid consensus input")
	// ErrComputation - guarded internal failure, e.g. a non-finite score.
	// Should not occur with bounded inputs.
	ErrComputation = errors.New("consensus computation failed")
)

// Outcome is the complete result of one consensus computation: the chunk
// result to overwrite and the per-transcription quality updates to persist.
// ClusterSize is the size of the winning cluster, 0 while pending.
type Outcome struct {
	Result      models.ChunkConsensusResult
	Updates     []models.QualityUpdate
	ClusterSize int
}

// Engine runs the full pipeline for one chunk: normalize, score pairwise
// similarity, resolve the consensus cluster, score every submission, and
// decide the review status.
//
// The engine is stateless and safe for concurrent use across chunks. The
// caller must serialize recomputations of the same chunk; two concurrent
// runs could race on the stored result.
type Engine struct {
	params     Params
	normalizer *Normalizer
	resolver   *Resolver
	quality    *QualityScorer
	policy     *Policy
	reputation ReputationLookup
}

// New creates an engine. reputation may be nil, in which case every
// submitter gets the default reputation.
func New(params Params, reputation ReputationLookup) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if reputation == nil {
		reputation = ReputationTable{Default: params.DefaultReputation}
	}
	return &Engine{
		params:     params,
		normalizer: NewNormalizer(params.TerminalPunctuation),
		resolver:   NewResolver(params),
		quality:    NewQualityScorer(params),
		policy:     NewPolicy(params),
		reputation: reputation,
	}, nil
}

// WithStrategy replaces the clustering strategy. Intended for swapping in
// an alternative such as single-linkage without touching the rest of the
// pipeline.
func (e *Engine) WithStrategy(s ClusterStrategy) *Engine {
	e.resolver = NewResolverWithStrategy(e.params, s)
	return e
}

// Recompute runs the pipeline over every transcription of a chunk and
// returns the outcome to persist. Deterministic: the same transcription set
// and parameters always produce the same outcome, regardless of slice
// order.
//
// Transcriptions that normalize to the empty string are skips: they are
// excluded from the computation and from the participant count. An error
// return carries no outcome; the previously stored result must be left
// untouched.
func (e *Engine) Recompute(chunkID uuid.UUID, transcriptions []models.Transcription) (*Outcome, error) {
	if len(transcriptions) == 0 {
		return nil, fmt.Errorf("%w: no transcriptions for chunk %s", ErrInvalidInput, chunkID)
	}

	entries := make([]Entry, 0, len(transcriptions))
	byID := make(map[uuid.UUID]models.Transcription, len(transcriptions))
	for _, t := range transcriptions {
		byID[t.ID] = t
		text := e.normalizer.Normalize(t.RawText)
		if text == "" {
			continue // skip, not a submission
		}
		entries = append(entries, Entry{ID: t.ID, Text: text, CreatedAt: t.CreatedAt})
	}

	res := e.resolver.Resolve(entries)

	outcome := &Outcome{
		Result: models.ChunkConsensusResult{
			ChunkID:          chunkID,
			ParticipantCount: res.ParticipantCount,
			Status:           models.StatusPending,
		},
	}

	if res.Pending() {
		return outcome, nil
	}

	if !isFinite(res.Confidence) {
		return nil, fmt.Errorf("%w: non-finite confidence for chunk %s", ErrComputation, chunkID)
	}

	text := res.ConsensusText()
	outcome.Result.ConsensusText = &text
	outcome.Result.Confidence = res.Confidence
	outcome.Result.Status = e.policy.Decide(res.ParticipantCount, res.Confidence)
	outcome.ClusterSize = len(res.Clusters[res.ConsensusCluster].Members)

	rep := res.RepresentativeIndex()
	for i, entry := range res.Entries {
		t := byID[entry.ID]
		score := e.quality.Score(t, res.InConsensus(i), res.SimilarityToConsensus(i), e.reputation.Lookup(t.SubmitterID))
		if !isFinite(score) {
			return nil, fmt.Errorf("%w: non-finite quality score for transcription %s", ErrComputation, entry.ID)
		}
		outcome.Updates = append(outcome.Updates, models.QualityUpdate{
			TranscriptionID: entry.ID,
			QualityScore:    score,
			IsConsensus:     i == rep,
		})
	}

	return outcome, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
