package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no topic_prefix is configured.
// All terrarium topics live under a single configurable prefix so several
// installations can share one broker without colliding.
const DefaultTopicPrefix = "terrarium"

// Topics provides builders for terrarium MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// The topic scheme is flat: {prefix}/{category}/{identifier}
//
//	topics := mqtt.Topics{Prefix: cfg.TopicPrefix}
//	readingTopic := topics.Readings("ambient_bme280")
//	// Returns: "terrarium/readings/ambient_bme280"
//
// The zero value uses DefaultTopicPrefix.
type Topics struct {
	Prefix string
}

// prefix returns the configured prefix, falling back to the default.
func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// =============================================================================
// Reading Topics
// =============================================================================

// Readings returns the topic an agent publishes a device's readings to.
//
// Example: terrarium/readings/ambient_bme280
func (t Topics) Readings(deviceKey string) string {
	return fmt.Sprintf("%s/readings/%s", t.prefix(), deviceKey)
}

// AllReadings returns the pattern the ingest bridge subscribes to.
// It matches reading batches from every device key.
//
// Pattern: terrarium/readings/#
func (t Topics) AllReadings() string {
	return fmt.Sprintf("%s/readings/#", t.prefix())
}

// DeviceKey extracts the device key from a readings topic.
//
// Returns an empty string when the topic is not a single-device readings
// topic (wrong prefix, wrong category, nested segments, or wildcards).
// Payloads carry their own device_key, so callers treat this as a fallback.
func (t Topics) DeviceKey(topic string) string {
	readingsPrefix := t.prefix() + "/readings/"
	if !strings.HasPrefix(topic, readingsPrefix) {
		return ""
	}
	key := strings.TrimPrefix(topic, readingsPrefix)
	if key == "" || strings.ContainsAny(key, "/+#") {
		return ""
	}
	return key
}

// =============================================================================
// Status Topics
// =============================================================================

// Status returns the status topic for a client.
// Used for LWT and online/offline announcements.
//
// Example: terrarium/status/terrariumd
func (t Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/status/%s", t.prefix(), clientID)
}

// AllStatus returns a pattern matching every client's status topic.
//
// Pattern: terrarium/status/+
func (t Topics) AllStatus() string {
	return fmt.Sprintf("%s/status/+", t.prefix())
}

// =============================================================================
// Wildcard Patterns
// =============================================================================

// AllTopics returns a pattern matching every terrarium topic.
// Use with caution - this receives ALL traffic under the prefix.
//
// Pattern: terrarium/#
func (t Topics) AllTopics() string {
	return fmt.Sprintf("%s/#", t.prefix())
}
