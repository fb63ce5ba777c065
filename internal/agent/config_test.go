package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sablewood/terrarium-core/internal/infrastructure/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
api:
  url: "http://terrarium.local:8000/api/measurements"
  timeout_sec: 5

mqtt:
  broker: "tcp://broker.local:1883"
  client_id: "vivarium-agent"
  qos: 2

logging:
  level: "debug"
  format: "text"

sensors:
  - key: ambient_bme280
    type: bme280
    name: "Ambient Climate"
    location: "upper canopy"
    interval_sec: 30
    metrics: [temperature_c, humidity_pct]
  - key: hide_ds18b20
    type: ds18b20
    sensor_id: "28-0316a2791c4a"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.API.URL != "http://terrarium.local:8000/api/measurements" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.API.TimeoutSec != 5 {
		t.Errorf("API.TimeoutSec = %d, want 5", cfg.API.TimeoutSec)
	}
	if cfg.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("MQTT.Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.ClientID != "vivarium-agent" {
		t.Errorf("MQTT.ClientID = %q, want vivarium-agent", cfg.MQTT.ClientID)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}

	if len(cfg.Sensors) != 2 {
		t.Fatalf("Sensors = %d, want 2", len(cfg.Sensors))
	}
	first := cfg.Sensors[0]
	if first.Key != "ambient_bme280" || first.Type != "bme280" {
		t.Errorf("sensor = %q/%q", first.Key, first.Type)
	}
	if first.IntervalSec != 30 {
		t.Errorf("IntervalSec = %d, want 30", first.IntervalSec)
	}
	if len(first.Metrics) != 2 {
		t.Errorf("Metrics = %v", first.Metrics)
	}
	if cfg.Sensors[1].SensorID != "28-0316a2791c4a" {
		t.Errorf("SensorID = %q", cfg.Sensors[1].SensorID)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `
api:
  url: "http://localhost:8000/api/measurements"

sensors:
  - key: tank_bme280
    type: bme280
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.API.TimeoutSec != 10 {
		t.Errorf("default TimeoutSec = %d, want 10", cfg.API.TimeoutSec)
	}
	if cfg.API.Transport != TransportHTTP {
		t.Errorf("default Transport = %q, want http", cfg.API.Transport)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("default MQTT.Broker = %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.ClientID != "terrarium-agent" {
		t.Errorf("default MQTT.ClientID = %q", cfg.MQTT.ClientID)
	}
	if cfg.MQTT.TopicPrefix != "terrarium" {
		t.Errorf("default MQTT.TopicPrefix = %q", cfg.MQTT.TopicPrefix)
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("default MQTT.QoS = %d, want 1", cfg.MQTT.QoS)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default logging = %q/%q, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Sensors[0].IntervalSec != DefaultIntervalSec {
		t.Errorf("default IntervalSec = %d, want %d", cfg.Sensors[0].IntervalSec, DefaultIntervalSec)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
api:
  url: "http://from-file:8000/api/measurements"
`)

	t.Setenv("TERRARIUM_AGENT_API_URL", "http://from-env:8000/api/measurements")
	t.Setenv("TERRARIUM_AGENT_API_TRANSPORT", "mqtt")
	t.Setenv("TERRARIUM_AGENT_MQTT_BROKER", "tcp://mqtt.local:1883")
	t.Setenv("TERRARIUM_AGENT_MQTT_USERNAME", "agent-user")
	t.Setenv("TERRARIUM_AGENT_MQTT_PASSWORD", "agent-pass")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.API.URL != "http://from-env:8000/api/measurements" {
		t.Errorf("API.URL = %q, want env override", cfg.API.URL)
	}
	if cfg.API.Transport != TransportMQTT {
		t.Errorf("API.Transport = %q, want mqtt", cfg.API.Transport)
	}
	if cfg.MQTT.Broker != "tcp://mqtt.local:1883" {
		t.Errorf("MQTT.Broker = %q, want env override", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Username != "agent-user" || cfg.MQTT.Password != "agent-pass" {
		t.Errorf("MQTT auth = %q/%q, want env overrides", cfg.MQTT.Username, cfg.MQTT.Password)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("LoadConfig() should return error for a missing file")
	}
}

func validTestConfig() Config {
	return Config{
		API: APISettings{
			URL:        "http://localhost:8000/api/measurements",
			TimeoutSec: 10,
			Transport:  TransportHTTP,
		},
		MQTT: MQTTSettings{
			Broker:      "tcp://localhost:1883",
			ClientID:    "terrarium-agent",
			TopicPrefix: "terrarium",
			QoS:         1,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError string
	}{
		{
			name:      "missing api url",
			mutate:    func(c *Config) { c.API.URL = "" },
			wantError: "api.url is required",
		},
		{
			name:      "invalid timeout",
			mutate:    func(c *Config) { c.API.TimeoutSec = 0 },
			wantError: "api.timeout_sec must be at least 1 second",
		},
		{
			name:      "invalid transport",
			mutate:    func(c *Config) { c.API.Transport = "carrier-pigeon" },
			wantError: "api.transport",
		},
		{
			name: "mqtt transport requires broker",
			mutate: func(c *Config) {
				c.API.Transport = TransportMQTT
				c.MQTT.Broker = ""
			},
			wantError: "mqtt.broker is required when api.transport is mqtt",
		},
		{
			name: "invalid broker url",
			mutate: func(c *Config) {
				c.API.Transport = TransportMQTT
				c.MQTT.Broker = "not a url"
			},
			wantError: "is not a valid broker URL",
		},
		{
			name: "invalid qos",
			mutate: func(c *Config) {
				c.API.Transport = TransportMQTT
				c.MQTT.QoS = 3
			},
			wantError: "mqtt.qos must be 0, 1, or 2",
		},
		{
			name: "sensor key required",
			mutate: func(c *Config) {
				c.Sensors = []SensorConfig{{Type: "bme280", IntervalSec: 60}}
			},
			wantError: "sensors[0].key is required",
		},
		{
			name: "duplicate sensor key",
			mutate: func(c *Config) {
				c.Sensors = []SensorConfig{
					{Key: "tank_bme280", Type: "bme280", IntervalSec: 60},
					{Key: "tank_bme280", Type: "ds18b20", IntervalSec: 60},
				}
			},
			wantError: `sensors[1].key "tank_bme280" is duplicate`,
		},
		{
			name: "sensor type required",
			mutate: func(c *Config) {
				c.Sensors = []SensorConfig{{Key: "tank_bme280", IntervalSec: 60}}
			},
			wantError: "sensors[0].type is required",
		},
		{
			name: "negative interval",
			mutate: func(c *Config) {
				c.Sensors = []SensorConfig{{Key: "tank_bme280", Type: "bme280", IntervalSec: -5}}
			},
			wantError: "sensors[0].interval_sec must be at least 1 second",
		},
		{
			name: "bad i2c address",
			mutate: func(c *Config) {
				c.Sensors = []SensorConfig{{Key: "tank_bme280", Type: "bme280", IntervalSec: 60, Address: "zz"}}
			},
			wantError: "is not a hex i2c address",
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "verbose" },
			wantError: "logging.level",
		},
		{
			name:      "invalid log format",
			mutate:    func(c *Config) { c.Logging.Format = "xml" },
			wantError: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should have returned an error")
			}
			if !strings.Contains(err.Error(), tt.wantError) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantError)
			}
		})
	}
}

func TestConfigValidationSuccess(t *testing.T) {
	cfg := validTestConfig()
	cfg.Sensors = []SensorConfig{
		{Key: "tank_bme280", Type: "bme280", IntervalSec: 30, Address: "0x76"},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned unexpected error: %v", err)
	}
}

func TestMQTTClientConfig(t *testing.T) {
	cfg := validTestConfig()
	cfg.MQTT.Broker = "ssl://broker.local:8883"
	cfg.MQTT.Username = "agent"
	cfg.MQTT.Password = "secret"
	cfg.MQTT.QoS = 2
	cfg.MQTT.TopicPrefix = "vivarium"

	clientCfg, err := cfg.MQTTClientConfig()
	if err != nil {
		t.Fatalf("MQTTClientConfig() error = %v", err)
	}

	if !clientCfg.Enabled {
		t.Error("Enabled = false, want true")
	}
	if clientCfg.Broker.Host != "broker.local" {
		t.Errorf("Broker.Host = %q, want broker.local", clientCfg.Broker.Host)
	}
	if clientCfg.Broker.Port != 8883 {
		t.Errorf("Broker.Port = %d, want 8883", clientCfg.Broker.Port)
	}
	if !clientCfg.Broker.TLS {
		t.Error("Broker.TLS = false, want true for ssl scheme")
	}
	if clientCfg.Broker.ClientID != "terrarium-agent" {
		t.Errorf("Broker.ClientID = %q", clientCfg.Broker.ClientID)
	}
	if clientCfg.Auth.Username != "agent" || clientCfg.Auth.Password != "secret" {
		t.Errorf("Auth = %q/%q", clientCfg.Auth.Username, clientCfg.Auth.Password)
	}
	if clientCfg.QoS != 2 {
		t.Errorf("QoS = %d, want 2", clientCfg.QoS)
	}
	if clientCfg.TopicPrefix != "vivarium" {
		t.Errorf("TopicPrefix = %q, want vivarium", clientCfg.TopicPrefix)
	}
}

func TestMQTTClientConfigDefaultPort(t *testing.T) {
	cfg := validTestConfig()
	cfg.MQTT.Broker = "tcp://broker.local"

	clientCfg, err := cfg.MQTTClientConfig()
	if err != nil {
		t.Fatalf("MQTTClientConfig() error = %v", err)
	}
	if clientCfg.Broker.Port != 1883 {
		t.Errorf("Broker.Port = %d, want default 1883", clientCfg.Broker.Port)
	}
	if clientCfg.Broker.TLS {
		t.Error("Broker.TLS = true, want false for tcp scheme")
	}
}

func TestMQTTSettingsStringRedactsPassword(t *testing.T) {
	settings := MQTTSettings{Broker: "tcp://localhost:1883", Password: "hunter2"}

	s := settings.String()
	if strings.Contains(s, "hunter2") {
		t.Errorf("String() leaked the password: %s", s)
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Errorf("String() = %s, want [REDACTED] marker", s)
	}
}
