package model

import (
	"fmt"
	"time"
)

// ScanRecord is a persisted identification together with the photo that produced it.
type ScanRecord struct {
	ScannedAt        time.Time
	ID               string
	CorrectedSpecies string
	Matches          []Match
	Photo            []byte
	ScansRemaining   int
	IsOfflineResult  bool
}

// TopMatch returns the highest ranked match of the scan, if any.
func (s *ScanRecord) TopMatch() *Match {
	if len(s.Matches) == 0 {
		return nil
	}
	return &s.Matches[0]
}

// Correction records that the user disagreed with an identification.
type Correction struct {
	CreatedAt           time.Time
	ScanID              string
	OriginalSpeciesID   string
	CorrectedSpeciesID  string
	CorrectedCommonName string
	ID                  int64
}

// Validate ensures the correction names a replacement species.
func (c *Correction) Validate() error {
	if c.CorrectedSpeciesID == "" {
		return fmt.Errorf("corrected species id is required")
	}
	if c.CorrectedCommonName == "" {
		return fmt.Errorf("corrected common name is required")
	}
	return nil
}
