package models

// RecomputeRequested is the trigger event consumed from the job topic.
// Emitted by the platform on new-submission and on admin-forced recompute.
type RecomputeRequested struct {
	EventType string `json:"eventType"`
	ChunkID   string `json:"chunkId"`
	Forced    bool   `json:"forced"`
	Timestamp int64  `json:"timestamp"`
}

// ConsensusUpdated is published after every successful recompute.
type ConsensusUpdated struct {
	EventType        string  `json:"eventType"`
	ChunkID          string  `json:"chunkId"`
	Status           string  `json:"status"`
	ConsensusText    string  `json:"consensusText,omitempty"`
	Confidence       float64 `json:"confidence"`
	ParticipantCount int     `json:"participantCount"`
	Timestamp        int64   `json:"timestamp"`
}

// ReviewFlagged is published when a chunk lands in NEEDS_REVIEW, for the
// admin tooling's review queue.
type ReviewFlagged struct {
	EventType        string  `json:"eventType"`
	ChunkID          string  `json:"chunkId"`
	Confidence       float64 `json:"confidence"`
	ParticipantCount int     `json:"participantCount"`
	Timestamp        int64   `json:"timestamp"`
}
