package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/sablewood/terrarium-core/internal/device"
)

// Query window limits. Requests may ask for less; anything above the
// ceiling is clamped, zero or negative falls back to the default.
const (
	DefaultRangeLimit   = 1440
	MaxRangeLimit       = 10000
	DefaultSummaryLimit = 400
	MaxSummaryLimit     = 2000
)

// RangeFilter selects readings for one device metric within an optional
// time window. Start and End are inclusive. Ordering is ascending by
// recording time unless Descending is set.
type RangeFilter struct {
	DeviceKey  string
	Metric     string
	Start      *time.Time
	End        *time.Time
	Limit      int
	Descending bool
}

// Queries serves the read side of the pipeline: range queries over one
// device metric and the cross-device summary snapshot.
type Queries struct {
	store   Store
	devices *device.Registry
}

// NewQueries creates the query service over the store and device registry.
func NewQueries(store Store, devices *device.Registry) *Queries {
	return &Queries{store: store, devices: devices}
}

// Range returns readings matching the filter. Both DeviceKey and Metric
// must be set.
func (q *Queries) Range(ctx context.Context, filter RangeFilter) ([]Reading, error) {
	if filter.DeviceKey == "" || filter.Metric == "" {
		return nil, ErrRangeFieldsRequired
	}
	return q.store.QueryRange(ctx, filter)
}

// Summarize scans the most recent readings across all devices and reduces
// them to the freshest sample per (device, metric) pair. Devices appear in
// the order they are first encountered in the scan, so the most recently
// reporting device leads. A device whose readings have all aged out of the
// scan window is absent from the summary.
func (q *Queries) Summarize(ctx context.Context, scanLimit int) (*Summary, error) {
	readings, err := q.store.ScanRecent(ctx, scanLimit)
	if err != nil {
		return nil, fmt.Errorf("scanning readings: %w", err)
	}

	summary := &Summary{
		GeneratedAt: time.Now().UTC(),
		Sensors:     []SummaryEntry{},
	}
	position := make(map[string]int)
	seen := make(map[string]map[string]bool)

	for _, reading := range readings {
		pos, ok := position[reading.DeviceKey]
		if !ok {
			dev, err := q.devices.GetDevice(ctx, reading.DeviceKey)
			if err != nil {
				return nil, fmt.Errorf("resolving device %s: %w", reading.DeviceKey, err)
			}
			summary.Sensors = append(summary.Sensors, SummaryEntry{
				Key:      dev.Key,
				Name:     dev.Name,
				Model:    dev.Model,
				Location: dev.Location,
				Metrics:  []MetricSample{},
			})
			pos = len(summary.Sensors) - 1
			position[reading.DeviceKey] = pos
			seen[reading.DeviceKey] = make(map[string]bool)
		}

		if seen[reading.DeviceKey][reading.Metric] {
			continue
		}
		seen[reading.DeviceKey][reading.Metric] = true

		summary.Sensors[pos].Metrics = append(summary.Sensors[pos].Metrics, MetricSample{
			Metric:     reading.Metric,
			Value:      reading.Value,
			Unit:       reading.Unit,
			RecordedAt: reading.RecordedAt,
		})
	}

	return summary, nil
}

// CountReadings reports the total number of stored readings.
func (q *Queries) CountReadings(ctx context.Context) (int64, error) {
	return q.store.CountReadings(ctx)
}

// clampLimit applies the default and ceiling to a requested window size.
func clampLimit(limit, fallback, ceiling int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
