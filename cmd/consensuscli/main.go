// consensuscli runs the consensus engine over a JSON file of
// transcriptions and prints the outcome, for threshold tuning and
// debugging without a database or broker.
//
// Usage:
//
//	consensuscli -input transcriptions.json [-reputation reputation.json]
//
// The input file holds an array of transcriptions:
//
//	[{"id":"...","chunkId":"...","submitterId":"...","rawText":"...",
//	  "statedConfidence":0.9,"createdAt":"2025-06-01T12:00:00Z"}, ...]
//
// The optional reputation file maps submitter id to weight in [0,1].
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"voice-consensus-engine/internal/config"
	"voice-consensus-engine/internal/consensus"
	"voice-consensus-engine/internal/models"
)

func main() {
	inputPath := flag.String("input", "", "path to a JSON array of transcriptions (required)")
	reputationPath := flag.String("reputation", "", "path to a JSON object of submitter reputations (optional)")
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	transcriptions, err := loadTranscriptions(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(transcriptions) == 0 {
		fmt.Fprintln(os.Stderr, "error: input holds no transcriptions")
		os.Exit(1)
	}

	var reputation consensus.ReputationLookup
	if *reputationPath != "" {
		reputation, err = loadReputation(*reputationPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	// Thresholds come from the same env vars the service uses.
	params := config.Load().Params()
	engine, err := consensus.New(params, reputation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outcome, err := engine.Recompute(transcriptions[0].ChunkID, transcriptions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func loadTranscriptions(path string) ([]models.Transcription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var transcriptions []models.Transcription
	if err := json.Unmarshal(data, &transcriptions); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return transcriptions, nil
}

func loadReputation(path string) (consensus.ReputationLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	weights := make(map[uuid.UUID]float64, len(raw))
	for k, v := range raw {
		id, err := uuid.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("invalid submitter id %q in %s: %w", k, path, err)
		}
		weights[id] = v
	}
	return consensus.ReputationTable{
		Weights: weights,
		Default: consensus.DefaultParams().DefaultReputation,
	}, nil
}
