package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/sablewood/terrarium-core/internal/infrastructure/mqtt"
	"github.com/sablewood/terrarium-core/internal/telemetry"
)

// Publisher is the part of the MQTT client the sink uses.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Topics() mqtt.Topics
}

// MQTTSink publishes reading batches to the collector's readings topics.
//
// Readings are grouped by device key and each group is published as a
// JSON array to <prefix>/readings/<deviceKey>, the same topics the
// collector's ingest bridge subscribes to.
type MQTTSink struct {
	publisher Publisher
	qos       byte
}

// NewMQTTSink creates a sink publishing through the given client.
func NewMQTTSink(publisher Publisher, qos byte) *MQTTSink {
	return &MQTTSink{publisher: publisher, qos: qos}
}

// Send publishes the batch, one message per device. Every group is
// attempted even when an earlier one fails.
func (s *MQTTSink) Send(ctx context.Context, batch []telemetry.IncomingReading) error {
	groups := make(map[string][]telemetry.IncomingReading)
	for _, reading := range batch {
		groups[reading.DeviceKey] = append(groups[reading.DeviceKey], reading)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	topics := s.publisher.Topics()

	var errs []error
	for _, key := range keys {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		payload, err := json.Marshal(groups[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("encoding readings for %s: %w", key, err))
			continue
		}
		if err := s.publisher.Publish(topics.Readings(key), payload, s.qos, false); err != nil {
			errs = append(errs, fmt.Errorf("publishing readings for %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
