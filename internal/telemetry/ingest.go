package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sablewood/terrarium-core/internal/device"
)

// Logger is the minimal logging interface the ingestor needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Mirror forwards stored readings to an external time-series sink. Writes
// are fire-and-forget: failures are the mirror's problem, never the
// ingestion path's.
type Mirror interface {
	WriteReading(deviceKey, metric string, value float64, unit string, recordedAt time.Time)
}

// Broadcaster pushes live events to connected clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Event channels published after a successful ingest.
const (
	EventReadingIngested   = "reading.ingested"
	EventDeviceProvisioned = "device.provisioned"
)

// Ingestor validates reading batches and applies them to the store. HTTP
// and MQTT ingestion both run through it, so validation and provisioning
// behave identically regardless of transport.
type Ingestor struct {
	store   Store
	devices *device.Registry
	mirror  Mirror
	events  Broadcaster
	logger  Logger
}

// NewIngestor creates an ingestor over the store and device registry.
func NewIngestor(store Store, devices *device.Registry) *Ingestor {
	return &Ingestor{
		store:   store,
		devices: devices,
		logger:  noopLogger{},
	}
}

// SetLogger attaches a logger. Passing nil restores the no-op logger.
func (ing *Ingestor) SetLogger(logger Logger) {
	if logger == nil {
		ing.logger = noopLogger{}
		return
	}
	ing.logger = logger
}

// SetMirror attaches an external time-series mirror.
func (ing *Ingestor) SetMirror(mirror Mirror) {
	ing.mirror = mirror
}

// SetBroadcaster attaches a live event broadcaster.
func (ing *Ingestor) SetBroadcaster(events Broadcaster) {
	ing.events = events
}

// Ingest validates and stores a batch of readings. The batch is
// all-or-nothing: the first invalid record rejects the whole request
// before anything is written, and a storage failure rolls the whole
// transaction back.
//
// On success it returns the number of stored readings, upserts any newly
// provisioned devices into the registry, mirrors the readings, and
// broadcasts live events.
func (ing *Ingestor) Ingest(ctx context.Context, batch []IncomingReading) (int, error) {
	if len(batch) == 0 {
		return 0, ErrEmptyBatch
	}

	readings := make([]Reading, 0, len(batch))
	candidates := make(map[string]*device.Device)
	for _, incoming := range batch {
		reading, candidate, err := normalizeReading(incoming)
		if err != nil {
			return 0, err
		}
		readings = append(readings, reading)
		if _, ok := candidates[reading.DeviceKey]; !ok {
			candidates[reading.DeviceKey] = candidate
		}
	}

	provisioned, err := ing.store.InsertBatch(ctx, readings, candidates)
	if err != nil {
		return 0, fmt.Errorf("storing readings: %w", err)
	}

	for i := range provisioned {
		dev := provisioned[i]
		ing.devices.Upsert(&dev)
		ing.logger.Info("device provisioned from reading", "key", dev.Key, "name", dev.Name)
		ing.broadcast(EventDeviceProvisioned, map[string]any{"device": dev})
	}

	ing.mirrorReadings(readings)
	ing.broadcast(EventReadingIngested, map[string]any{
		"count":    len(readings),
		"readings": readings,
	})

	ing.logger.Debug("readings ingested", "count", len(readings))
	return len(readings), nil
}

// broadcast publishes an event when a broadcaster is attached.
func (ing *Ingestor) broadcast(channel string, payload any) {
	if ing.events == nil {
		return
	}
	ing.events.Broadcast(channel, payload)
}

// mirrorReadings forwards the batch to the mirror when one is attached.
func (ing *Ingestor) mirrorReadings(readings []Reading) {
	if ing.mirror == nil {
		return
	}
	for _, r := range readings {
		ing.mirror.WriteReading(r.DeviceKey, r.Metric, r.Value, r.Unit, r.RecordedAt)
	}
}

// normalizeReading validates one incoming reading and splits it into the
// storable sample plus the provisioning candidate for its device key.
// Candidate defaults: display name derived from the key, poll interval 60.
func normalizeReading(incoming IncomingReading) (Reading, *device.Device, error) {
	if incoming.DeviceKey == "" || incoming.Metric == "" || incoming.Value == nil || incoming.Unit == "" {
		return Reading{}, nil, ErrMissingFields
	}

	value, err := coerceValue(incoming.Value)
	if err != nil {
		return Reading{}, nil, err
	}

	recordedAt := time.Now().UTC()
	if incoming.RecordedAt != "" {
		recordedAt, err = ParseTimestamp(incoming.RecordedAt)
		if err != nil {
			return Reading{}, nil, err
		}
	}

	reading := Reading{
		Metric:     incoming.Metric,
		Value:      value,
		Unit:       incoming.Unit,
		RecordedAt: recordedAt,
		DeviceKey:  incoming.DeviceKey,
	}

	candidate := &device.Device{
		Key:             incoming.DeviceKey,
		Name:            incoming.DeviceName,
		Model:           optionalString(incoming.DeviceModel),
		Location:        optionalString(incoming.DeviceLocation),
		Enabled:         true,
		PollIntervalSec: incoming.PollIntervalSec,
	}
	if candidate.Name == "" {
		candidate.Name = device.NameFromKey(candidate.Key)
	}
	if candidate.PollIntervalSec <= 0 {
		candidate.PollIntervalSec = device.DefaultPollInterval
	}

	return reading, candidate, nil
}

// coerceValue converts a wire value into a finite float64. JSON numbers,
// integers, and numeric strings are accepted; everything else, including
// NaN and infinities, is rejected.
func coerceValue(raw any) (float64, error) {
	var value float64

	switch v := raw.(type) {
	case float64:
		value = v
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, ErrValueNotNumber
		}
		value = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, ErrValueNotNumber
		}
		value = parsed
	default:
		return 0, ErrValueNotNumber
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrValueNotNumber
	}
	return value, nil
}

// optionalString maps empty wire strings to absent values.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
