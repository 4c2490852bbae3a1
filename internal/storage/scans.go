package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/woodsnap/internal/common"
	"github.com/Veraticus/woodsnap/internal/model"
)

// DefaultHistoryLimit caps ListScans when no limit is given.
const DefaultHistoryLimit = 50

// SaveScan records an identification. A missing ID or timestamp is filled in.
func (s *SQLiteStorage) SaveScan(ctx context.Context, scan *model.ScanRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateScan(scan); err != nil {
		return err
	}

	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = time.Now()
	}

	matches, err := json.Marshal(scan.Matches)
	if err != nil {
		return fmt.Errorf("failed to encode matches: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scans (id, scanned_at, matches, photo, scans_remaining, is_offline, corrected_species)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, scan.ID, scan.ScannedAt.UTC(), string(matches), scan.Photo, scan.ScansRemaining, scan.IsOfflineResult, scan.CorrectedSpecies)
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// GetScan returns the scan with id, including its photo.
func (s *SQLiteStorage) GetScan(ctx context.Context, id string) (*model.ScanRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getScanTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getScanTx(ctx context.Context, q queryable, id string) (*model.ScanRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, scanned_at, matches, photo, scans_remaining, is_offline, corrected_species
		FROM scans
		WHERE id = ?
	`, id)

	scan, err := scanRecord(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// ListScans returns the most recent scans first. Photos are omitted.
func (s *SQLiteStorage) ListScans(ctx context.Context, limit int) ([]model.ScanRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scanned_at, matches, NULL, scans_remaining, is_offline, corrected_species
		FROM scans
		ORDER BY scanned_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scans []model.ScanRecord
	for rows.Next() {
		scan, err := scanRecord(rows, false)
		if err != nil {
			return nil, err
		}
		scans = append(scans, *scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scans: %w", err)
	}
	return scans, nil
}

// CountScans returns the number of stored scans.
func (s *SQLiteStorage) CountScans(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scans: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, withPhoto bool) (*model.ScanRecord, error) {
	var (
		scan    model.ScanRecord
		matches string
		photo   []byte
	)
	if err := row.Scan(
		&scan.ID,
		&scan.ScannedAt,
		&matches,
		&photo,
		&scan.ScansRemaining,
		&scan.IsOfflineResult,
		&scan.CorrectedSpecies,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if err := json.Unmarshal([]byte(matches), &scan.Matches); err != nil {
		return nil, fmt.Errorf("failed to decode matches for scan %s: %w", scan.ID, err)
	}
	if withPhoto {
		scan.Photo = photo
	}
	return &scan, nil
}
