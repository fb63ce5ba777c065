package mqttingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sablewood/terrarium-core/internal/infrastructure/mqtt"
	"github.com/sablewood/terrarium-core/internal/telemetry"
)

// ingestTimeout bounds how long a single batch may spend in the ingestion
// path. Batches are small; anything longer means the database is wedged.
const ingestTimeout = 10 * time.Second

// Bridge feeds reading batches published over MQTT into the ingestion path.
//
// It subscribes to the readings wildcard and hands every decoded batch to
// the same Ingestor the HTTP API uses, so validation, provisioning, and
// broadcast behave identically regardless of transport. MQTT is
// fire-and-forget: malformed or rejected payloads are logged and dropped,
// never acknowledged back to the publisher.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt     MQTTClient
	ingestor Ingestor
	topics   mqtt.Topics
	qos      byte

	// Counters for the metrics endpoint.
	batchesReceived atomic.Uint64
	readingsStored  atomic.Uint64
	batchesDropped  atomic.Uint64

	// Shutdown coordination
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// MQTTClient is the interface for MQTT operations the bridge needs.
// Satisfied by *mqtt.Client; mocked in tests.
type MQTTClient interface {
	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// Topics returns the topic builder configured with the client's prefix.
	Topics() mqtt.Topics

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Ingestor is the ingestion entry point the bridge feeds decoded batches to.
// Satisfied by *telemetry.Ingestor.
type Ingestor interface {
	Ingest(ctx context.Context, batch []telemetry.IncomingReading) (int, error)
}

// Logger is the structured logger interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Client is the connected MQTT client.
	Client MQTTClient

	// Ingestor receives every decoded batch.
	Ingestor Ingestor

	// QoS is the maximum QoS for the readings subscription.
	QoS byte

	// Logger is optional; without it the bridge drops silently.
	Logger Logger
}

// New creates a bridge. Call Start to subscribe.
func New(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("mqttingest: client is required")
	}
	if opts.Ingestor == nil {
		return nil, fmt.Errorf("mqttingest: ingestor is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		mqtt:      opts.Client,
		ingestor:  opts.Ingestor,
		topics:    opts.Client.Topics(),
		qos:       opts.QoS,
		ctx:       ctx,
		ctxCancel: cancel,
		logger:    opts.Logger,
	}, nil
}

// Start subscribes to the readings wildcard and begins ingesting.
func (b *Bridge) Start() error {
	pattern := b.topics.AllReadings()
	if err := b.mqtt.Subscribe(pattern, b.qos, b.handleMessage); err != nil {
		return fmt.Errorf("subscribe to readings: %w", err)
	}

	b.logInfo("mqtt ingest bridge started", "topic", pattern, "qos", b.qos)
	return nil
}

// Stop unsubscribes and cancels any in-flight ingestion.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()

		if err := b.mqtt.Unsubscribe(b.topics.AllReadings()); err != nil {
			b.logDebug("unsubscribe skipped", "reason", err.Error())
		}

		b.logInfo("mqtt ingest bridge stopped")
	})
}

// handleMessage decodes one published payload and feeds it to the ingestor.
//
// Accepted payload shapes, matching what agents and bare sensor firmware
// publish:
//   - {"readings": [...]} - the batch envelope the HTTP API also accepts
//   - [...]               - a bare array of readings
//   - {...}               - a single reading
//
// Readings without a device_key inherit the key from the topic when the
// message was published to a single-device topic.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	b.batchesReceived.Add(1)

	batch, err := decodeBatch(payload)
	if err != nil {
		b.batchesDropped.Add(1)
		b.logWarn("dropping malformed reading payload",
			"topic", topic,
			"bytes", len(payload),
			"error", err)
		return nil
	}

	if key := b.topics.DeviceKey(topic); key != "" {
		for i := range batch {
			if batch[i].DeviceKey == "" {
				batch[i].DeviceKey = key
			}
		}
	}

	ctx, cancel := context.WithTimeout(b.ctx, ingestTimeout)
	defer cancel()

	count, err := b.ingestor.Ingest(ctx, batch)
	if err != nil {
		b.batchesDropped.Add(1)
		b.logWarn("dropping rejected reading batch",
			"topic", topic,
			"readings", len(batch),
			"error", err)
		return nil
	}

	b.readingsStored.Add(uint64(count))
	b.logDebug("ingested reading batch", "topic", topic, "count", count)
	return nil
}

// decodeBatch turns a raw payload into a slice of incoming readings.
func decodeBatch(payload []byte) ([]telemetry.IncomingReading, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	switch trimmed[0] {
	case '[':
		var batch []telemetry.IncomingReading
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("decoding reading array: %w", err)
		}
		return batch, nil

	case '{':
		// A batch envelope when the readings key is present, otherwise a
		// single reading object.
		var envelope struct {
			Readings []telemetry.IncomingReading `json:"readings"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Readings != nil {
			return envelope.Readings, nil
		}

		var single telemetry.IncomingReading
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("decoding reading object: %w", err)
		}
		return []telemetry.IncomingReading{single}, nil

	default:
		return nil, fmt.Errorf("payload is not a JSON array or object")
	}
}

// Metrics contains bridge counters for the API metrics endpoint.
type Metrics struct {
	Connected        bool   `json:"connected"`
	BatchesReceived  uint64 `json:"batches_received"`
	ReadingsIngested uint64 `json:"readings_ingested"`
	BatchesDropped   uint64 `json:"batches_dropped"`
}

// GetMetrics returns current bridge counters.
func (b *Bridge) GetMetrics() Metrics {
	return Metrics{
		Connected:        b.mqtt.IsConnected(),
		BatchesReceived:  b.batchesReceived.Load(),
		ReadingsIngested: b.readingsStored.Load(),
		BatchesDropped:   b.batchesDropped.Load(),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
