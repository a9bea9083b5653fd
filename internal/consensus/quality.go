package consensus

import (
	"math"

	"github.com/google/uuid"

	"voice-consensus-engine/internal/models"
)

// ReputationLookup resolves a submitter's trust weight in [0,1]. Supplied by
// the storage collaborator; the engine never mutates reputation.
type ReputationLookup interface {
	Lookup(submitterID uuid.UUID) float64
}

// ReputationTable is a fixed in-memory ReputationLookup. Unknown submitters
// get the configured default. Values outside [0,1] are clamped rather than
// rejected.
type ReputationTable struct {
	Weights map[uuid.UUID]float64
	Default float64
}

// Lookup implements ReputationLookup.
func (t ReputationTable) Lookup(submitterID uuid.UUID) float64 {
	if w, ok := t.Weights[submitterID]; ok {
		return clamp01(w)
	}
	return clamp01(t.Default)
}

// QualityScorer turns agreement evidence, submitter reputation, and stated
// confidence into a per-transcription quality score in [0,1].
type QualityScorer struct {
	params Params
}

// NewQualityScorer creates a scorer with the given thresholds.
func NewQualityScorer(params Params) *QualityScorer {
	return &QualityScorer{params: params}
}

// Score computes the quality score for one transcription.
//
// Base is 1 for members of the consensus cluster, otherwise the similarity
// to the consensus text, so outliers get credit proportional to how close
// they were. Reputation modulates the base only within the configured band
// and can never override agreement evidence. A stated confidence that
// diverges sharply from the base draws a small extra penalty: confidently
// wrong costs more than flagged uncertainty.
func (s *QualityScorer) Score(t models.Transcription, inConsensus bool, simToConsensus float64, reputation float64) float64 {
	base := clamp01(simToConsensus)
	if inConsensus {
		base = 1
	}

	score := base * (s.params.ReputationFloor + s.params.ReputationWeight*clamp01(reputation))

	if t.StatedConfidence != nil && math.Abs(clamp01(*t.StatedConfidence)-base) > s.params.ConfidenceGap {
		score *= s.params.ConfidencePenalty
	}

	return clamp01(score)
}
