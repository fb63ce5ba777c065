package agent

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	iioDir := iioDeviceFixture(t, "bme280", nil)
	w1Dir := t.TempDir()

	tests := []struct {
		name string
		cfg  SensorConfig
	}{
		{"bme280", SensorConfig{Key: "tank_bme280", Type: "bme280", Device: iioDir}},
		{"ltr390", SensorConfig{Key: "canopy_ltr390", Type: "ltr390", Device: iioDir}},
		{"ds18b20", SensorConfig{Key: "hide_ds18b20", Type: "ds18b20", Device: w1Dir}},
		{"bh1750", SensorConfig{Key: "shelf_bh1750", Type: "bh1750", Device: iioDir}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if s.Key() != tt.cfg.Key {
				t.Errorf("Key() = %q, want %q", s.Key(), tt.cfg.Key)
			}
		})
	}
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(SensorConfig{Key: "mystery", Type: "thermo9000"})
	if !errors.Is(err, ErrUnknownSensorType) {
		t.Fatalf("New() error = %v, want ErrUnknownSensorType", err)
	}
	if !strings.Contains(err.Error(), `unknown sensor type: "thermo9000"`) {
		t.Errorf("New() error = %v", err)
	}
}

func TestSensorMetaDefaults(t *testing.T) {
	m := newSensorMeta(SensorConfig{Key: "canopy_ltr390", Type: "ltr390"})

	if m.name != "Canopy Ltr390" {
		t.Errorf("name = %q, want title-cased key", m.name)
	}
	if m.model != "ltr390" {
		t.Errorf("model = %q, want the type tag", m.model)
	}
	if m.Interval() != DefaultIntervalSec*time.Second {
		t.Errorf("Interval() = %v, want %ds", m.Interval(), DefaultIntervalSec)
	}
	if !m.wants("uv_index") || !m.wants("anything") {
		t.Error("empty metric filter should admit everything")
	}
}

func TestSensorMetaExplicit(t *testing.T) {
	m := newSensorMeta(SensorConfig{
		Key:         "ambient_bme280",
		Type:        "bme280",
		Name:        "Ambient Climate",
		Model:       "BME280",
		Location:    "upper canopy",
		IntervalSec: 30,
		Metrics:     []string{"temperature_c", "humidity_pct"},
	})

	if m.name != "Ambient Climate" {
		t.Errorf("name = %q", m.name)
	}
	if m.model != "BME280" {
		t.Errorf("model = %q", m.model)
	}
	if m.location != "upper canopy" {
		t.Errorf("location = %q", m.location)
	}
	if m.Interval() != 30*time.Second {
		t.Errorf("Interval() = %v, want 30s", m.Interval())
	}
	if !m.wants("temperature_c") || !m.wants("humidity_pct") {
		t.Error("configured metrics should pass the filter")
	}
	if m.wants("pressure_hpa") {
		t.Error("unconfigured metric should be filtered out")
	}
}

func TestSensorMetaReadings(t *testing.T) {
	m := newSensorMeta(SensorConfig{
		Key:         "ambient_bme280",
		Type:        "bme280",
		Name:        "Ambient Climate",
		Location:    "upper canopy",
		IntervalSec: 30,
	})

	before := time.Now().UTC()
	readings := m.Readings([]Value{
		{Metric: "temperature", Value: 24.5, Unit: "c"},
		{Metric: "humidity", Value: 48.2, Unit: "pct"},
	})

	if len(readings) != 2 {
		t.Fatalf("Readings() = %d records, want 2", len(readings))
	}

	first := readings[0]
	if first.DeviceKey != "ambient_bme280" {
		t.Errorf("DeviceKey = %q", first.DeviceKey)
	}
	if first.Metric != "temperature" || first.Value != 24.5 || first.Unit != "c" {
		t.Errorf("reading = %s/%v/%s", first.Metric, first.Value, first.Unit)
	}
	if first.DeviceName != "Ambient Climate" {
		t.Errorf("DeviceName = %q", first.DeviceName)
	}
	if first.DeviceModel != "bme280" {
		t.Errorf("DeviceModel = %q, want type tag default", first.DeviceModel)
	}
	if first.DeviceLocation != "upper canopy" {
		t.Errorf("DeviceLocation = %q", first.DeviceLocation)
	}
	if first.PollIntervalSec != 30 {
		t.Errorf("PollIntervalSec = %d, want 30", first.PollIntervalSec)
	}

	recorded, err := time.Parse(time.RFC3339Nano, first.RecordedAt)
	if err != nil {
		t.Fatalf("RecordedAt %q is not RFC3339: %v", first.RecordedAt, err)
	}
	if recorded.Before(before.Add(-time.Second)) || recorded.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("RecordedAt = %v, want roughly now", recorded)
	}

	// Both records in a batch share one timestamp.
	if readings[1].RecordedAt != first.RecordedAt {
		t.Errorf("RecordedAt differs across the batch: %q vs %q", readings[1].RecordedAt, first.RecordedAt)
	}
}

func TestSensorMetaReadingsEmpty(t *testing.T) {
	m := newSensorMeta(SensorConfig{Key: "tank_bme280", Type: "bme280"})

	if readings := m.Readings(nil); len(readings) != 0 {
		t.Errorf("Readings(nil) = %d records, want 0", len(readings))
	}
}
