package telemetry

import "time"

// Reading is a single stored measurement sample. RecordedAt is always UTC.
type Reading struct {
	Metric     string    `json:"metric"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	RecordedAt time.Time `json:"recorded_at"`
	DeviceKey  string    `json:"device_key"`
}

// IncomingReading is the wire shape of a reading submitted for ingestion,
// over HTTP or MQTT. Value is left untyped so JSON numbers and numeric
// strings are both accepted; coercion happens during normalisation.
//
// The device_* fields carry optional provisioning metadata: when the device
// key is unknown, the first reading that introduces it also describes it.
type IncomingReading struct {
	DeviceKey       string `json:"device_key"`
	Metric          string `json:"metric"`
	Value           any    `json:"value"`
	Unit            string `json:"unit"`
	RecordedAt      string `json:"recorded_at,omitempty"`
	DeviceName      string `json:"device_name,omitempty"`
	DeviceModel     string `json:"device_model,omitempty"`
	DeviceLocation  string `json:"device_location,omitempty"`
	PollIntervalSec int    `json:"poll_interval_sec,omitempty"`
}

// MetricSample is the latest observed sample for one metric of one device.
type MetricSample struct {
	Metric     string    `json:"metric"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SummaryEntry groups the freshest samples of one device.
type SummaryEntry struct {
	Key      string         `json:"key"`
	Name     string         `json:"name"`
	Model    *string        `json:"model"`
	Location *string        `json:"location"`
	Metrics  []MetricSample `json:"metrics"`
}

// Summary is the dashboard snapshot: for every device seen in the scan
// window, the most recent sample per metric.
type Summary struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Sensors     []SummaryEntry `json:"sensors"`
}
