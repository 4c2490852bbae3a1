// Package model defines the core domain models used throughout the application.
package model

import "fmt"

// MaxMatches is the number of candidate species kept per identification.
const MaxMatches = 3

// Match is one candidate species for a scanned wood sample.
type Match struct {
	Properties     map[string]string `json:"properties,omitempty"`
	Hardness       *int              `json:"hardness,omitempty"`
	ID             string            `json:"id"`
	SpeciesID      string            `json:"speciesId"`
	CommonName     string            `json:"commonName"`
	ScientificName string            `json:"scientificName"`
	GrainPattern   string            `json:"grainPattern"`
	TypicalUses    string            `json:"typicalUses"`
	SimilarSpecies []string          `json:"similarSpecies"`
	Confidence     float64           `json:"confidence"`
}

// Validate ensures the Match carries the fields every consumer relies on.
func (m *Match) Validate() error {
	if m.SpeciesID == "" {
		return fmt.Errorf("species id is required")
	}
	if m.CommonName == "" {
		return fmt.Errorf("common name is required")
	}
	if m.ScientificName == "" {
		return fmt.Errorf("scientific name is required")
	}
	if m.Confidence < 0.0 || m.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %.2f", m.Confidence)
	}
	return nil
}

// ClampConfidence limits a raw confidence value to [0, 1].
func ClampConfidence(v float64) float64 {
	switch {
	case v < 0.0:
		return 0.0
	case v > 1.0:
		return 1.0
	default:
		return v
	}
}

// TopMatches returns at most MaxMatches entries, preserving order.
func TopMatches(matches []Match) []Match {
	if len(matches) <= MaxMatches {
		return matches
	}
	return matches[:MaxMatches]
}

// IdentificationResult is the outcome of one identify request.
type IdentificationResult struct {
	Matches         []Match `json:"matches"`
	ScansRemaining  int     `json:"scansRemaining"`
	IsOfflineResult bool    `json:"isOfflineResult"`
}

// Top returns the highest ranked match, if any.
func (r IdentificationResult) Top() *Match {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}
