package events

import (
	"testing"

	"github.com/google/uuid"
)

func TestDecodeTrigger(t *testing.T) {
	chunkID := uuid.New()

	tests := []struct {
		name       string
		payload    string
		wantChunk  uuid.UUID
		wantForced bool
		wantErr    bool
	}{
		{
			name:      "submission trigger",
			payload:   `{"eventType":"chunk.recompute.requested","chunkId":"` + chunkID.String() + `","forced":false,"timestamp":1750000000000}`,
			wantChunk: chunkID,
		},
		{
			name:       "forced recompute",
			payload:    `{"eventType":"chunk.recompute.requested","chunkId":"` + chunkID.String() + `","forced":true}`,
			wantChunk:  chunkID,
			wantForced: true,
		},
		{"not json", "not json at all", uuid.Nil, false, true},
		{"missing chunk id", `{"eventType":"chunk.recompute.requested"}`, uuid.Nil, false, true},
		{"invalid chunk id", `{"chunkId":"not-a-uuid"}`, uuid.Nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotChunk, gotForced, err := decodeTrigger([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected decode error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeTrigger: %v", err)
			}
			if gotChunk != tt.wantChunk {
				t.Errorf("chunk id = %v, want %v", gotChunk, tt.wantChunk)
			}
			if gotForced != tt.wantForced {
				t.Errorf("forced = %v, want %v", gotForced, tt.wantForced)
			}
		})
	}
}
