// Package storage provides the data persistence layer for woodsnap.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/woodsnap/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidScan       = errors.New("invalid scan")
	ErrInvalidCorrection = errors.New("invalid correction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateScan validates a scan record before it is saved.
func validateScan(scan *model.ScanRecord) error {
	if scan == nil {
		return fmt.Errorf("%w: scan", ErrNilParameter)
	}
	if len(scan.Matches) == 0 {
		return fmt.Errorf("%w: no matches", ErrInvalidScan)
	}
	for i := range scan.Matches {
		if err := scan.Matches[i].Validate(); err != nil {
			return fmt.Errorf("%w: match %d: %v", ErrInvalidScan, i, err)
		}
	}
	if scan.ScansRemaining < 0 {
		return fmt.Errorf("%w: negative scans remaining", ErrInvalidScan)
	}
	return nil
}

// validateCorrection validates a user correction.
func validateCorrection(c *model.Correction) error {
	if c == nil {
		return fmt.Errorf("%w: correction", ErrNilParameter)
	}
	if strings.TrimSpace(c.ScanID) == "" {
		return fmt.Errorf("%w: missing scan ID", ErrInvalidCorrection)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCorrection, err)
	}
	return nil
}
