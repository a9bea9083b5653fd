package consensus

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"voice-consensus-engine/internal/models"
)

func testTranscription(n, submitter byte, text string, offsetSec int) models.Transcription {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return models.Transcription{
		ID:          testUUID(n),
		ChunkID:     testUUID(200),
		SubmitterID: testUUID(submitter),
		RawText:     text,
		CreatedAt:   base.Add(time.Duration(offsetSec) * time.Second),
	}
}

func newTestEngine(t *testing.T, reputation ReputationLookup) *Engine {
	t.Helper()
	e, err := New(DefaultParams(), reputation)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestRecompute_EmptySet(t *testing.T) {
	e := newTestEngine(t, nil)

	_, err := e.Recompute(testUUID(200), nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty set, got %v", err)
	}
}

func TestRecompute_SingleSubmissionPending(t *testing.T) {
	e := newTestEngine(t, nil)

	out, err := e.Recompute(testUUID(200), []models.Transcription{
		testTranscription(1, 101, "only submission so far", 0),
	})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	if out.Result.Status != models.StatusPending {
		t.Errorf("expected PENDING, got %v", out.Result.Status)
	}
	if out.Result.ConsensusText != nil {
		t.Errorf("expected nil consensus text, got %q", *out.Result.ConsensusText)
	}
	if out.Result.ParticipantCount != 1 {
		t.Errorf("expected participant count 1, got %d", out.Result.ParticipantCount)
	}
	if len(out.Updates) != 0 {
		t.Errorf("expected no quality updates before consensus, got %d", len(out.Updates))
	}
}

func TestRecompute_SkipsExcluded(t *testing.T) {
	e := newTestEngine(t, nil)

	out, err := e.Recompute(testUUID(200), []models.Transcription{
		testTranscription(1, 101, "   ", 0),
		testTranscription(2, 102, "", 10),
	})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	if out.Result.ParticipantCount != 0 {
		t.Errorf("expected participant count 0 with only skips, got %d", out.Result.ParticipantCount)
	}
	if out.Result.Status != models.StatusPending {
		t.Errorf("expected PENDING, got %v", out.Result.Status)
	}
	if out.Result.ConsensusText != nil {
		t.Error("expected nil consensus text")
	}
}

func TestRecompute_VerbatimPairAccepted(t *testing.T) {
	e := newTestEngine(t, nil)

	out, err := e.Recompute(testUUID(200), []models.Transcription{
		testTranscription(1, 101, "the quick brown fox", 0),
		testTranscription(2, 102, "The quick brown fox.", 10),
	})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	if out.Result.Status != models.StatusAccepted {
		t.Errorf("expected ACCEPTED, got %v", out.Result.Status)
	}
	if out.Result.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", out.Result.Confidence)
	}
	if out.Result.ConsensusText == nil || *out.Result.ConsensusText != "the quick brown fox" {
		t.Errorf("unexpected consensus text %v", out.Result.ConsensusText)
	}
	if out.Result.ParticipantCount != 2 {
		t.Errorf("expected participant count 2, got %d", out.Result.ParticipantCount)
	}
}

func TestRecompute_MajorityWithOutlierNeedsReview(t *testing.T) {
	e := newTestEngine(t, nil)

	out, err := e.Recompute(testUUID(200), []models.Transcription{
		testTranscription(1, 101, "আমি ভালো আছি", 0),
		testTranscription(2, 102, "আমি ভালো আছি", 10),
		testTranscription(3, 103, "আমি ভালো নাই", 20),
	})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	want := 2.0 / 3.0
	if math.Abs(out.Result.Confidence-want) > 1e-9 {
		t.Errorf("expected confidence %v, got %v", want, out.Result.Confidence)
	}
	// 0.667 is below the 0.8 accept threshold.
	if out.Result.Status != models.StatusNeedsReview {
		t.Errorf("expected NEEDS_REVIEW, got %v", out.Result.Status)
	}
	if out.Result.ConsensusText == nil || *out.Result.ConsensusText != "আমি ভালো আছি" {
		t.Errorf("unexpected consensus text %v", out.Result.ConsensusText)
	}

	// The outlier gets partial credit proportional to its similarity.
	var outlier *models.QualityUpdate
	for i := range out.Updates {
		if out.Updates[i].TranscriptionID == testUUID(3) {
			outlier = &out.Updates[i]
		}
	}
	if outlier == nil {
		t.Fatal("missing quality update for the outlier")
	}
	wantScore := (2.0 / 3.0) * 0.85 // similarity * default reputation factor
	if math.Abs(outlier.QualityScore-wantScore) > 1e-9 {
		t.Errorf("outlier quality score = %v, want %v", outlier.QualityScore, wantScore)
	}
}

func TestRecompute_ReputationBoundsQuality(t *testing.T) {
	table := ReputationTable{
		Weights: map[uuid.UUID]float64{
			testUUID(101): 0.0,
			testUUID(102): 1.0,
		},
		Default: 0.5,
	}
	e := newTestEngine(t, table)

	out, err := e.Recompute(testUUID(200), []models.Transcription{
		testTranscription(1, 101, "same words here", 0),
		testTranscription(2, 102, "same words here", 10),
	})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	scores := map[uuid.UUID]float64{}
	for _, u := range out.Updates {
		scores[u.TranscriptionID] = u.QualityScore
	}
	// Perfect agreement with zero reputation is floored at 0.7, not 1.0.
	if math.Abs(scores[testUUID(1)]-0.7) > 1e-9 {
		t.Errorf("zero-reputation submitter score = %v, want 0.7", scores[testUUID(1)])
	}
	if math.Abs(scores[testUUID(2)]-1.0) > 1e-9 {
		t.Errorf("full-reputation submitter score = %v, want 1.0", scores[testUUID(2)])
	}
}

func TestRecompute_SingleConsensusFlag(t *testing.T) {
	e := newTestEngine(t, nil)

	out, err := e.Recompute(testUUID(200), []models.Transcription{
		testTranscription(1, 101, "shared text", 0),
		testTranscription(2, 102, "shared text", 10),
		testTranscription(3, 103, "shared text", 20),
		testTranscription(4, 104, "unrelated words completely", 30),
	})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	flagged := 0
	for _, u := range out.Updates {
		if u.IsConsensus {
			flagged++
		}
	}
	if flagged != 1 {
		t.Errorf("expected exactly one is_consensus flag, got %d", flagged)
	}
}

func TestRecompute_Deterministic(t *testing.T) {
	e := newTestEngine(t, nil)

	transcriptions := []models.Transcription{
		testTranscription(1, 101, "the cat sat on the mat", 0),
		testTranscription(2, 102, "the cat sat on a mat", 10),
		testTranscription(3, 103, "dogs bark at night", 20),
	}
	reversed := []models.Transcription{transcriptions[2], transcriptions[1], transcriptions[0]}

	first, err := e.Recompute(testUUID(200), transcriptions)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	for i := 0; i < 5; i++ {
		in := transcriptions
		if i%2 == 1 {
			in = reversed
		}
		got, err := e.Recompute(testUUID(200), in)
		if err != nil {
			t.Fatalf("Recompute run %d: %v", i, err)
		}
		if got.Result != first.Result && (got.Result.ConsensusText == nil || first.Result.ConsensusText == nil ||
			*got.Result.ConsensusText != *first.Result.ConsensusText ||
			got.Result.Confidence != first.Result.Confidence ||
			got.Result.Status != first.Result.Status) {
			t.Fatalf("run %d: result differs: %+v vs %+v", i, got.Result, first.Result)
		}
		if len(got.Updates) != len(first.Updates) {
			t.Fatalf("run %d: update count differs", i)
		}
		for j := range got.Updates {
			if got.Updates[j] != first.Updates[j] {
				t.Errorf("run %d: update %d differs: %+v vs %+v", i, j, got.Updates[j], first.Updates[j])
			}
		}
	}
}

func TestRecompute_ScoreBounds(t *testing.T) {
	e := newTestEngine(t, nil)

	sets := [][]models.Transcription{
		{
			testTranscription(1, 101, "a b c", 0),
			testTranscription(2, 102, "a b d", 10),
		},
		{
			testTranscription(1, 101, "alpha beta gamma delta", 0),
			testTranscription(2, 102, "alpha beta", 10),
			testTranscription(3, 103, "totally different thing", 20),
			testTranscription(4, 104, "alpha beta gamma delta", 30),
		},
	}

	for _, set := range sets {
		out, err := e.Recompute(testUUID(200), set)
		if err != nil {
			t.Fatalf("Recompute: %v", err)
		}
		if out.Result.Confidence < 0 || out.Result.Confidence > 1 {
			t.Errorf("confidence %v out of [0,1]", out.Result.Confidence)
		}
		for _, u := range out.Updates {
			if u.QualityScore < 0 || u.QualityScore > 1 {
				t.Errorf("quality score %v out of [0,1]", u.QualityScore)
			}
		}
	}
}

func TestNew_InvalidParams(t *testing.T) {
	p := DefaultParams()
	p.MinimumCount = 0

	if _, err := New(p, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad params, got %v", err)
	}
}
