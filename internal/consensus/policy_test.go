package consensus

import (
	"errors"
	"testing"

	"voice-consensus-engine/internal/models"
)

func TestPolicy_Decide(t *testing.T) {
	p := NewPolicy(DefaultParams()) // minimum 2, accept 0.8

	tests := []struct {
		name         string
		participants int
		confidence   float64
		want         models.Status
	}{
		{"no participants", 0, 0, models.StatusPending},
		{"below minimum regardless of confidence", 1, 1.0, models.StatusPending},
		{"at minimum, confident", 2, 1.0, models.StatusAccepted},
		{"at minimum, exactly at threshold", 2, 0.8, models.StatusAccepted},
		{"at minimum, just under threshold", 2, 0.7999, models.StatusNeedsReview},
		{"many participants, weak agreement", 10, 0.3, models.StatusNeedsReview},
		{"many participants, strong agreement", 10, 0.95, models.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Decide(tt.participants, tt.confidence); got != tt.want {
				t.Errorf("Decide(%d, %v) = %v, want %v", tt.participants, tt.confidence, got, tt.want)
			}
		})
	}
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		prev    models.Status
		next    models.Status
		wantErr error
	}{
		{"pending to accepted", models.StatusPending, models.StatusAccepted, nil},
		{"pending to needs review", models.StatusPending, models.StatusNeedsReview, nil},
		{"pending stays pending", models.StatusPending, models.StatusPending, nil},
		{"recompute re-enters pending from accepted", models.StatusAccepted, models.StatusPending, nil},
		{"recompute re-enters pending from needs review", models.StatusNeedsReview, models.StatusPending, nil},
		{"accepted recomputed in place", models.StatusAccepted, models.StatusAccepted, nil},
		{"accepted to needs review directly", models.StatusAccepted, models.StatusNeedsReview, ErrDirectTransition},
		{"needs review to accepted directly", models.StatusNeedsReview, models.StatusAccepted, ErrDirectTransition},
		{"unknown previous status", models.Status("BOGUS"), models.StatusPending, ErrUnknownStatus},
		{"unknown next status", models.StatusPending, models.Status(""), ErrUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.prev, tt.next)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTransition(%v, %v) = %v, want %v", tt.prev, tt.next, err, tt.wantErr)
			}
		})
	}
}

func TestStatus_Predicates(t *testing.T) {
	if models.StatusPending.IsTerminal() {
		t.Error("PENDING must not be terminal")
	}
	if !models.StatusAccepted.IsTerminal() || !models.StatusNeedsReview.IsTerminal() {
		t.Error("ACCEPTED and NEEDS_REVIEW must be terminal")
	}
	if !models.StatusPending.Valid() || models.Status("NOPE").Valid() {
		t.Error("Valid() misclassifies statuses")
	}
}
