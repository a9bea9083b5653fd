// Package models defines the data structures shared by the consensus engine
// and its storage and event collaborators.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the review status of a chunk's consensus result.
type Status string

const (
	// StatusPending - not enough agreement or submissions yet; re-evaluated
	// on the next submission.
	StatusPending Status = "PENDING"
	// StatusAccepted - consensus confidence cleared the accept threshold;
	// no further automatic recomputation needed.
	StatusAccepted Status = "ACCEPTED"
	// StatusNeedsReview - enough submissions but weak agreement; requires a
	// human decision via the admin review queue.
	StatusNeedsReview Status = "NEEDS_REVIEW"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if automatic processing is done with this chunk
// until an admin forces a recompute.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusNeedsReview
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusNeedsReview:
		return true
	}
	return false
}

// Transcription is one submitted transcription of one audio chunk.
// RawText is immutable after creation; a re-submission is a new row.
type Transcription struct {
	ID               uuid.UUID `json:"id"`
	ChunkID          uuid.UUID `json:"chunkId"`
	SubmitterID      uuid.UUID `json:"submitterId"`
	RawText          string    `json:"rawText"`
	StatedConfidence *float64  `json:"statedConfidence,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	QualityScore     *float64  `json:"qualityScore,omitempty"`
	IsConsensus      bool      `json:"isConsensus"`
}

// ChunkConsensusResult is the aggregate outcome for one audio chunk.
// One row per chunk, overwritten on every recompute.
type ChunkConsensusResult struct {
	ChunkID          uuid.UUID `json:"chunkId"`
	ConsensusText    *string   `json:"consensusText,omitempty"`
	Confidence       float64   `json:"confidence"`
	ParticipantCount int       `json:"participantCount"`
	Status           Status    `json:"status"`
}

// QualityUpdate is a per-transcription score update to persist.
type QualityUpdate struct {
	TranscriptionID uuid.UUID `json:"transcriptionId"`
	QualityScore    float64   `json:"qualityScore"`
	IsConsensus     bool      `json:"isConsensus"`
}
