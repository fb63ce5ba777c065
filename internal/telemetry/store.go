package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sablewood/terrarium-core/internal/device"
)

// Store persists readings and serves the range and summary scans.
//
// Implementations must be safe for concurrent use and must treat
// InsertBatch as atomic: either every reading in the batch is stored or
// none are.
type Store interface {
	// InsertBatch stores normalised readings in one transaction,
	// provisioning any devices not yet known from the supplied candidates.
	// It returns the devices created while applying this batch.
	InsertBatch(ctx context.Context, readings []Reading, candidates map[string]*device.Device) ([]device.Device, error)

	// QueryRange returns readings for one device metric ordered by
	// recording time. The filter limit defaults to DefaultRangeLimit and
	// is clamped to MaxRangeLimit.
	QueryRange(ctx context.Context, filter RangeFilter) ([]Reading, error)

	// ScanRecent returns the most recent readings across all devices,
	// newest first. The limit defaults to DefaultSummaryLimit and is
	// clamped to MaxSummaryLimit.
	ScanRecent(ctx context.Context, limit int) ([]Reading, error)

	// CountReadings reports the total number of stored readings.
	CountReadings(ctx context.Context) (int64, error)
}

// SQLiteStore implements Store on the shared SQLite database.
//
// recorded_at is stored as UTC nanoseconds since the Unix epoch, so range
// bounds and ordering are integer comparisons rather than string ones.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a reading store backed by the given database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// InsertBatch stores the readings atomically. Unknown device keys are
// provisioned inside the same transaction from the candidate metadata.
func (s *SQLiteStore) InsertBatch(ctx context.Context, readings []Reading, candidates map[string]*device.Device) ([]device.Device, error) {
	if len(readings) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ingest transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	provisioned, err := s.ensureDevices(ctx, tx, readings, candidates)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO readings (device_key, metric, value, unit, recorded_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("preparing reading insert: %w", err)
	}
	defer stmt.Close()

	for _, reading := range readings {
		_, err := stmt.ExecContext(ctx,
			reading.DeviceKey,
			reading.Metric,
			reading.Value,
			reading.Unit,
			reading.RecordedAt.UnixNano(),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting reading for %s/%s: %w", reading.DeviceKey, reading.Metric, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing ingest transaction: %w", err)
	}

	return provisioned, nil
}

// ensureDevices provisions every device key referenced by the batch that is
// not yet present, in order of first appearance. Keys without a candidate
// fall back to derived defaults.
func (s *SQLiteStore) ensureDevices(ctx context.Context, tx *sql.Tx, readings []Reading, candidates map[string]*device.Device) ([]device.Device, error) {
	var provisioned []device.Device
	seen := make(map[string]bool, len(candidates))

	for _, reading := range readings {
		key := reading.DeviceKey
		if seen[key] {
			continue
		}
		seen[key] = true

		candidate := candidates[key]
		if candidate == nil {
			candidate = &device.Device{
				Key:             key,
				Name:            device.NameFromKey(key),
				Enabled:         true,
				PollIntervalSec: device.DefaultPollInterval,
			}
		}

		created, err := provisionDevice(ctx, tx, candidate)
		if err != nil {
			return nil, err
		}
		if created != nil {
			provisioned = append(provisioned, *created)
		}
	}

	return provisioned, nil
}

// provisionDevice inserts the candidate unless the key already exists. The
// ON CONFLICT guard resolves concurrent first-reading races: whichever
// insert lands first defines the device, everyone else reuses that row.
func provisionDevice(ctx context.Context, tx *sql.Tx, candidate *device.Device) (*device.Device, error) {
	now := time.Now().UTC()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO devices (key, name, model, location, poll_interval_sec, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		candidate.Key,
		candidate.Name,
		candidate.Model,
		candidate.Location,
		candidate.PollIntervalSec,
		candidate.Enabled,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("provisioning device %s: %w", candidate.Key, err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking provisioning result: %w", err)
	}
	if inserted == 0 {
		return nil, nil
	}

	created := candidate.Clone()
	created.CreatedAt = now
	created.UpdatedAt = now
	return created, nil
}

// QueryRange returns readings for one device metric. Both bounds are
// inclusive when set.
func (s *SQLiteStore) QueryRange(ctx context.Context, filter RangeFilter) ([]Reading, error) {
	query := "SELECT device_key, metric, value, unit, recorded_at FROM readings WHERE device_key = ? AND metric = ?"
	args := []any{filter.DeviceKey, filter.Metric}

	if filter.Start != nil {
		query += " AND recorded_at >= ?"
		args = append(args, filter.Start.UnixNano())
	}
	if filter.End != nil {
		query += " AND recorded_at <= ?"
		args = append(args, filter.End.UnixNano())
	}
	if filter.Descending {
		query += " ORDER BY recorded_at DESC"
	} else {
		query += " ORDER BY recorded_at ASC"
	}
	query += " LIMIT ?"
	args = append(args, clampLimit(filter.Limit, DefaultRangeLimit, MaxRangeLimit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	return collectReadings(rows)
}

// ScanRecent returns the newest readings across every device.
func (s *SQLiteStore) ScanRecent(ctx context.Context, limit int) ([]Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT device_key, metric, value, unit, recorded_at FROM readings ORDER BY recorded_at DESC LIMIT ?",
		clampLimit(limit, DefaultSummaryLimit, MaxSummaryLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("scanning recent readings: %w", err)
	}
	defer rows.Close()

	return collectReadings(rows)
}

// CountReadings reports the total number of stored readings.
func (s *SQLiteStore) CountReadings(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM readings").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting readings: %w", err)
	}
	return count, nil
}

// collectReadings drains rows into readings, converting stored nanoseconds
// back into UTC timestamps.
func collectReadings(rows *sql.Rows) ([]Reading, error) {
	readings := []Reading{}
	for rows.Next() {
		var reading Reading
		var nanos int64
		if err := rows.Scan(&reading.DeviceKey, &reading.Metric, &reading.Value, &reading.Unit, &nanos); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		reading.RecordedAt = time.Unix(0, nanos).UTC()
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}
