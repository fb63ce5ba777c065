package agent

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sablewood/terrarium-core/internal/infrastructure/config"
)

// Transport values for api.transport.
const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"
)

// Config is the root configuration for the sensor agent.
// Loaded from YAML with environment variable overrides.
type Config struct {
	API     APISettings          `yaml:"api"`
	MQTT    MQTTSettings         `yaml:"mqtt"`
	Sensors []SensorConfig       `yaml:"sensors"`
	Logging config.LoggingConfig `yaml:"logging"`
}

// APISettings contains collector connection settings.
type APISettings struct {
	// URL is the full URL of the collector's measurements endpoint.
	// Example: "http://terrarium.local:8000/api/measurements"
	URL string `yaml:"url"`

	// TimeoutSec is the HTTP request timeout (seconds).
	// Default: 10 seconds.
	TimeoutSec int `yaml:"timeout_sec"`

	// Transport selects how readings reach the collector: "http" posts
	// to URL, "mqtt" publishes to the broker's readings topics.
	// Default: "http".
	Transport string `yaml:"transport"`
}

// MQTTSettings contains MQTT broker connection settings, used when
// api.transport is "mqtt".
type MQTTSettings struct {
	// Broker is the MQTT broker URL.
	// Example: "tcp://localhost:1883"
	Broker string `yaml:"broker"`

	// ClientID is the MQTT client identifier.
	// Default: "terrarium-agent".
	ClientID string `yaml:"client_id"`

	// TopicPrefix is the leading topic segment for published readings.
	// Default: "terrarium".
	TopicPrefix string `yaml:"topic_prefix"`

	// Username for MQTT authentication (optional).
	Username string `yaml:"username"`

	// Password for MQTT authentication (optional).
	// WARNING: Never log this value. Use String() method for safe logging.
	Password string `yaml:"password"`

	// QoS is the MQTT quality of service level (0, 1, or 2).
	// Default: 1 (at least once delivery).
	QoS int `yaml:"qos"`
}

// String returns a string representation with password masked.
// Use this for logging to prevent credential exposure.
func (m MQTTSettings) String() string {
	password := ""
	if m.Password != "" {
		password = "[REDACTED]"
	}
	return fmt.Sprintf("MQTTSettings{Broker:%q, ClientID:%q, TopicPrefix:%q, Username:%q, Password:%s, QoS:%d}",
		m.Broker, m.ClientID, m.TopicPrefix, m.Username, password, m.QoS)
}

// SensorConfig defines one polled sensor.
type SensorConfig struct {
	// Key is the device key readings are reported under.
	// Must be unique across the agent's sensors.
	Key string `yaml:"key"`

	// Type selects the adapter: bme280, ltr390, ds18b20, bh1750.
	Type string `yaml:"type"`

	// Name is the human-readable device name sent for provisioning.
	// Default: title-cased key.
	Name string `yaml:"name"`

	// Model is the hardware model sent for provisioning.
	// Default: the type tag.
	Model string `yaml:"model"`

	// Location describes where the sensor sits (optional).
	Location string `yaml:"location"`

	// IntervalSec is the polling interval (seconds).
	// Default: 60 seconds.
	IntervalSec int `yaml:"interval_sec"`

	// Metrics limits which metrics the adapter emits. Empty means all.
	// Valid names per adapter: temperature_c, humidity_pct, pressure_hpa,
	// uv_index, ambient_light, illuminance.
	Metrics []string `yaml:"metrics"`

	// Address is the I2C address, e.g. "0x76". Only needed to pick one
	// of several identical sensors during device discovery.
	Address string `yaml:"address"`

	// Device is an explicit sysfs device directory, bypassing discovery.
	// Example: "/sys/bus/iio/devices/iio:device0"
	Device string `yaml:"device"`

	// SensorID is the 1-Wire probe id for ds18b20 sensors,
	// e.g. "28-0316a2791c4a". Default: first probe found.
	SensorID string `yaml:"sensor_id"`
}

// DefaultIntervalSec is the polling interval applied when a sensor
// config omits interval_sec.
const DefaultIntervalSec = 60

// LoadConfig reads configuration from a YAML file.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TERRARIUM_AGENT_SECTION_KEY
// For example: TERRARIUM_AGENT_API_URL, TERRARIUM_AGENT_MQTT_BROKER
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func LoadConfig(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	applySensorDefaults(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APISettings{
			TimeoutSec: 10,
			Transport:  TransportHTTP,
		},
		MQTT: MQTTSettings{
			Broker:      "tcp://localhost:1883",
			ClientID:    "terrarium-agent",
			TopicPrefix: "terrarium",
			QoS:         1,
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Sensors: []SensorConfig{},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TERRARIUM_AGENT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("TERRARIUM_AGENT_API_URL"); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv("TERRARIUM_AGENT_API_TRANSPORT"); v != "" {
		cfg.API.Transport = v
	}

	// MQTT
	if v := os.Getenv("TERRARIUM_AGENT_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("TERRARIUM_AGENT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("TERRARIUM_AGENT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
}

// applySensorDefaults fills per-sensor defaults the YAML may omit.
func applySensorDefaults(cfg *Config) {
	for i := range cfg.Sensors {
		if cfg.Sensors[i].IntervalSec == 0 {
			cfg.Sensors[i].IntervalSec = DefaultIntervalSec
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	errs = append(errs, c.validateAPI()...)
	errs = append(errs, c.validateMQTT()...)
	errs = append(errs, c.validateSensors()...)
	errs = append(errs, c.validateLogging()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateAPI validates collector connection settings.
func (c *Config) validateAPI() []string {
	var errs []string
	if c.API.URL == "" {
		errs = append(errs, "api.url is required")
	}
	if c.API.TimeoutSec < 1 {
		errs = append(errs, "api.timeout_sec must be at least 1 second")
	}
	if c.API.Transport != TransportHTTP && c.API.Transport != TransportMQTT {
		errs = append(errs, fmt.Sprintf("api.transport %q is invalid (use http or mqtt)", c.API.Transport))
	}
	return errs
}

// validateMQTT validates MQTT broker settings, only enforced when the
// MQTT transport is selected.
func (c *Config) validateMQTT() []string {
	if c.API.Transport != TransportMQTT {
		return nil
	}

	var errs []string
	if c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required when api.transport is mqtt")
	} else if u, err := url.Parse(c.MQTT.Broker); err != nil || u.Hostname() == "" {
		errs = append(errs, fmt.Sprintf("mqtt.broker %q is not a valid broker URL", c.MQTT.Broker))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	return errs
}

// validateSensors validates sensor configurations.
func (c *Config) validateSensors() []string {
	var errs []string
	keys := make(map[string]bool)

	for i, sensor := range c.Sensors {
		if sensor.Key == "" {
			errs = append(errs, fmt.Sprintf("sensors[%d].key is required", i))
			continue
		}
		if keys[sensor.Key] {
			errs = append(errs, fmt.Sprintf("sensors[%d].key %q is duplicate", i, sensor.Key))
		}
		keys[sensor.Key] = true

		if sensor.Type == "" {
			errs = append(errs, fmt.Sprintf("sensors[%d].type is required", i))
		}
		if sensor.IntervalSec < 1 {
			errs = append(errs, fmt.Sprintf("sensors[%d].interval_sec must be at least 1 second", i))
		}
		if sensor.Address != "" {
			if _, err := parseI2CAddress(sensor.Address); err != nil {
				errs = append(errs, fmt.Sprintf("sensors[%d].address %q is not a hex i2c address", i, sensor.Address))
			}
		}
	}

	return errs
}

// validateLogging validates logging settings.
func (c *Config) validateLogging() []string {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level %q is invalid (use debug, info, warn, or error)", c.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging.format %q is invalid (use json or text)", c.Logging.Format))
	}

	return errs
}

// GetTimeout returns the collector request timeout as a Duration.
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// MQTTClientConfig converts the agent's broker settings into the shared
// MQTT client configuration.
func (c *Config) MQTTClientConfig() (config.MQTTConfig, error) {
	u, err := url.Parse(c.MQTT.Broker)
	if err != nil {
		return config.MQTTConfig{}, fmt.Errorf("parsing mqtt broker URL: %w", err)
	}

	port := 1883
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return config.MQTTConfig{}, fmt.Errorf("parsing mqtt broker port: %w", err)
		}
	}

	scheme := strings.ToLower(u.Scheme)
	useTLS := scheme == "ssl" || scheme == "tls" || scheme == "mqtts"

	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     u.Hostname(),
			Port:     port,
			TLS:      useTLS,
			ClientID: c.MQTT.ClientID,
		},
		Auth: config.MQTTAuthConfig{
			Username: c.MQTT.Username,
			Password: c.MQTT.Password,
		},
		QoS:         c.MQTT.QoS,
		TopicPrefix: c.MQTT.TopicPrefix,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
			MaxAttempts:  0,
		},
	}, nil
}

// parseI2CAddress parses a hex I2C address string such as "0x76".
func parseI2CAddress(s string) (uint8, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	value, err := strconv.ParseUint(trimmed, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("parsing i2c address %q: %w", s, err)
	}
	return uint8(value), nil
}
