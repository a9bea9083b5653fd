package events

import (
	"context"
	"testing"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"nil brokers", &Config{Enabled: true, Brokers: nil}},
		{"nil config", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerConsensus != nil {
				t.Error("expected nil consensus writer when disabled")
			}
			if p.writerReview != nil {
				t.Error("expected nil review writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:        false,
		Brokers:        []string{"localhost:9092"},
		TopicConsensus: "test.consensus",
		TopicReview:    "test.review",
		Principal:      "test-principal",
	}

	p := New(cfg)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicConsensus != "test.consensus" {
		t.Errorf("expected topic consensus 'test.consensus', got %s", p.topicConsensus)
	}
	if p.topicReview != "test.review" {
		t.Errorf("expected topic review 'test.review', got %s", p.topicReview)
	}
}

func TestPublisher_PublishConsensusUpdated_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := map[string]string{"status": "ACCEPTED"}
	err := p.PublishConsensusUpdated(context.Background(), "chunk-1", event)

	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_PublishReviewFlagged_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})

	event := map[string]string{"status": "NEEDS_REVIEW"}
	err := p.PublishReviewFlagged(context.Background(), "chunk-1", event)

	if err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
}

func TestPublisher_Publish_InvalidJSON(t *testing.T) {
	p := New(&Config{Enabled: false})

	// Create an unmarshalable value (channel)
	event := make(chan int)
	if err := p.PublishConsensusUpdated(context.Background(), "chunk-1", event); err == nil {
		t.Error("expected error for unmarshalable consensus event")
	}
	if err := p.PublishReviewFlagged(context.Background(), "chunk-1", event); err == nil {
		t.Error("expected error for unmarshalable review event")
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}
