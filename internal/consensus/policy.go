package consensus

import (
	"errors"

	"voice-consensus-engine/internal/models"
)

// Errors for invalid status transitions.
var (
	// ErrDirectTransition - ACCEPTED and NEEDS_REVIEW are reachable from
	// PENDING only; a forced recompute re-enters through the full pipeline,
	// it never flips one terminal status to the other directly.
	ErrDirectTransition = errors.New("terminal statuses cannot transition into each other directly")
	// ErrUnknownStatus - status value outside the known set.
	ErrUnknownStatus = errors.New("unknown status")
)

// Policy decides the final review status of a chunk from its consensus
// result.
//
// Status transitions per computation:
//
//	PENDING ──→ ACCEPTED       (confidence >= accept threshold)
//	  │
//	  └──→ NEEDS_REVIEW        (enough submissions, weak agreement)
//
// PENDING is re-entered whenever the participant count is still below the
// minimum. ACCEPTED and NEEDS_REVIEW are terminal for automatic processing.
type Policy struct {
	params Params
}

// NewPolicy creates a policy with the given thresholds.
func NewPolicy(params Params) *Policy {
	return &Policy{params: params}
}

// Decide maps a participant count and confidence onto a status.
func (p *Policy) Decide(participantCount int, confidence float64) models.Status {
	if participantCount < p.params.MinimumCount {
		return models.StatusPending
	}
	if confidence >= p.params.AcceptThreshold {
		return models.StatusAccepted
	}
	return models.StatusNeedsReview
}

// ValidateTransition checks that moving from prev to next respects the
// state machine. Re-entering the same status is always allowed: results are
// recomputed in place.
func ValidateTransition(prev, next models.Status) error {
	if !prev.Valid() || !next.Valid() {
		return ErrUnknownStatus
	}
	if prev == next {
		return nil
	}
	if prev.IsTerminal() && next.IsTerminal() {
		return ErrDirectTransition
	}
	return nil
}
