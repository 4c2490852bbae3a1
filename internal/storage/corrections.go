package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/woodsnap/internal/model"
)

// SaveCorrection stores a user correction and marks the scan as corrected.
func (s *SQLiteStorage) SaveCorrection(ctx context.Context, c *model.Correction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCorrection(c); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	scan, err := s.getScanTx(ctx, tx, c.ScanID)
	if err != nil {
		return err
	}

	if c.OriginalSpeciesID == "" {
		if top := scan.TopMatch(); top != nil {
			c.OriginalSpeciesID = top.SpeciesID
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO corrections (scan_id, original_species_id, corrected_species_id, corrected_common_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ScanID, c.OriginalSpeciesID, c.CorrectedSpeciesID, c.CorrectedCommonName, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE scans SET corrected_species = ? WHERE id = ?
	`, c.CorrectedCommonName, c.ScanID); err != nil {
		return fmt.Errorf("failed to mark scan corrected: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read correction id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit correction: %w", err)
	}
	c.ID = id
	return nil
}

// ListCorrections returns corrections oldest first. An empty scanID lists all.
func (s *SQLiteStorage) ListCorrections(ctx context.Context, scanID string) ([]model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, scan_id, original_species_id, corrected_species_id, corrected_common_name, created_at
		FROM corrections`
	var args []any
	if scanID != "" {
		query += ` WHERE scan_id = ?`
		args = append(args, scanID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var corrections []model.Correction
	for rows.Next() {
		var c model.Correction
		if err := rows.Scan(&c.ID, &c.ScanID, &c.OriginalSpeciesID, &c.CorrectedSpeciesID, &c.CorrectedCommonName, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		corrections = append(corrections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating corrections: %w", err)
	}
	return corrections, nil
}
