package agent

import (
	"fmt"
	"time"

	"github.com/sablewood/terrarium-core/internal/device"
	"github.com/sablewood/terrarium-core/internal/telemetry"
)

// Value is a single measured quantity before it is stamped with sensor
// metadata.
type Value struct {
	Metric string
	Value  float64
	Unit   string
}

// Sensor reads measurements from one piece of hardware.
type Sensor interface {
	// Key returns the device key readings are reported under.
	Key() string

	// Interval returns the polling interval.
	Interval() time.Duration

	// Read samples the hardware and returns the current values.
	// An empty result with a nil error means every metric is filtered out.
	Read() ([]Value, error)

	// Readings converts sampled values into ingestion records stamped
	// with the current UTC time and the sensor's provisioning metadata.
	Readings(values []Value) []telemetry.IncomingReading
}

// New builds the adapter for a sensor config based on its type tag.
func New(cfg SensorConfig) (Sensor, error) {
	switch cfg.Type {
	case "bme280":
		return newBME280(cfg)
	case "ltr390":
		return newLTR390(cfg)
	case "ds18b20":
		return newDS18B20(cfg)
	case "bh1750":
		return newBH1750(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSensorType, cfg.Type)
	}
}

// sensorMeta carries the identity every adapter shares: the device key,
// provisioning metadata, the polling interval, and the metric filter.
type sensorMeta struct {
	key      string
	name     string
	model    string
	location string
	interval time.Duration
	metrics  map[string]struct{}
}

func newSensorMeta(cfg SensorConfig) sensorMeta {
	name := cfg.Name
	if name == "" {
		name = device.NameFromKey(cfg.Key)
	}
	model := cfg.Model
	if model == "" {
		model = cfg.Type
	}
	intervalSec := cfg.IntervalSec
	if intervalSec <= 0 {
		intervalSec = DefaultIntervalSec
	}

	var metrics map[string]struct{}
	if len(cfg.Metrics) > 0 {
		metrics = make(map[string]struct{}, len(cfg.Metrics))
		for _, m := range cfg.Metrics {
			metrics[m] = struct{}{}
		}
	}

	return sensorMeta{
		key:      cfg.Key,
		name:     name,
		model:    model,
		location: cfg.Location,
		interval: time.Duration(intervalSec) * time.Second,
		metrics:  metrics,
	}
}

func (m *sensorMeta) Key() string             { return m.key }
func (m *sensorMeta) Interval() time.Duration { return m.interval }

// wants reports whether a metric passes the configured filter.
// An empty filter admits everything.
func (m *sensorMeta) wants(metric string) bool {
	if m.metrics == nil {
		return true
	}
	_, ok := m.metrics[metric]
	return ok
}

// Readings stamps sampled values with the sensor's metadata so the
// collector can auto-provision the device on first contact.
func (m *sensorMeta) Readings(values []Value) []telemetry.IncomingReading {
	recordedAt := time.Now().UTC().Format(time.RFC3339Nano)

	readings := make([]telemetry.IncomingReading, 0, len(values))
	for _, v := range values {
		readings = append(readings, telemetry.IncomingReading{
			DeviceKey:       m.key,
			Metric:          v.Metric,
			Value:           v.Value,
			Unit:            v.Unit,
			RecordedAt:      recordedAt,
			DeviceName:      m.name,
			DeviceModel:     m.model,
			DeviceLocation:  m.location,
			PollIntervalSec: int(m.interval / time.Second),
		})
	}
	return readings
}
