// Package consensus implements the transcription consensus and
// quality-scoring engine: given all transcriptions submitted for an audio
// chunk, it picks a representative text, computes an agreement confidence,
// scores every submission, and decides whether the chunk needs human review.
//
// The package is pure: no I/O, no clocks, no goroutines. Callers fetch
// transcriptions and reputation beforehand and persist the outcome afterward.
package consensus

import "fmt"

// Params holds the tunable thresholds of the engine.
type Params struct {
	// MinimumCount is the minimum number of non-empty transcriptions
	// required before a consensus is attempted.
	MinimumCount int

	// AgreementThreshold is the minimum pairwise similarity for two
	// transcriptions to land in the same cluster.
	AgreementThreshold float64

	// AcceptThreshold is the minimum consensus confidence for a chunk to be
	// auto-accepted without review.
	AcceptThreshold float64

	// ReputationFloor and ReputationWeight bound how much submitter
	// reputation can modulate a quality score:
	// score = base * (ReputationFloor + ReputationWeight*reputation).
	ReputationFloor  float64
	ReputationWeight float64

	// ConfidenceGap is the absolute divergence between a submitter's stated
	// confidence and the computed base score beyond which the penalty
	// applies. ConfidencePenalty is the multiplier applied in that case.
	ConfidenceGap     float64
	ConfidencePenalty float64

	// DefaultReputation is used for submitters with no reputation record.
	DefaultReputation float64

	// TerminalPunctuation is the set of runes stripped from the end of a
	// transcription during normalization.
	TerminalPunctuation string
}

// DefaultParams returns the default engine thresholds.
func DefaultParams() Params {
	return Params{
		MinimumCount:        2,
		AgreementThreshold:  0.75,
		AcceptThreshold:     0.8,
		ReputationFloor:     0.7,
		ReputationWeight:    0.3,
		ConfidenceGap:       0.5,
		ConfidencePenalty:   0.95,
		DefaultReputation:   0.5,
		TerminalPunctuation: ".!?,;:।॥…。！？؟",
	}
}

// Validate checks that the parameters are internally consistent.
func (p Params) Validate() error {
	if p.MinimumCount < 1 {
		return fmt.Errorf("minimum count must be >= 1, got %d", p.MinimumCount)
	}
	if p.AgreementThreshold < 0 || p.AgreementThreshold > 1 {
		return fmt.Errorf("agreement threshold must be in [0,1], got %g", p.AgreementThreshold)
	}
	if p.AcceptThreshold < 0 || p.AcceptThreshold > 1 {
		return fmt.Errorf("accept threshold must be in [0,1], got %g", p.AcceptThreshold)
	}
	if p.ReputationFloor < 0 || p.ReputationFloor+p.ReputationWeight > 1 {
		return fmt.Errorf("reputation band [%g, %g] must stay within [0,1]",
			p.ReputationFloor, p.ReputationFloor+p.ReputationWeight)
	}
	if p.ConfidencePenalty <= 0 || p.ConfidencePenalty > 1 {
		return fmt.Errorf("confidence penalty must be in (0,1], got %g", p.ConfidencePenalty)
	}
	if p.DefaultReputation < 0 || p.DefaultReputation > 1 {
		return fmt.Errorf("default reputation must be in [0,1], got %g", p.DefaultReputation)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
