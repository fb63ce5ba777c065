package mqttingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sablewood/terrarium-core/internal/infrastructure/mqtt"
	"github.com/sablewood/terrarium-core/internal/telemetry"
)

// mockMQTTClient captures subscriptions so tests can invoke the handler
// directly, without a broker.
type mockMQTTClient struct {
	mu           sync.Mutex
	subscribed   map[string]byte
	handler      mqtt.MessageHandler
	subscribeErr error
	unsubCalls   int
	connected    bool
}

func newMockMQTTClient() *mockMQTTClient {
	return &mockMQTTClient{
		subscribed: make(map[string]byte),
		connected:  true,
	}
}

func (m *mockMQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.subscribed[topic] = qos
	m.handler = handler
	return nil
}

func (m *mockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubCalls++
	delete(m.subscribed, topic)
	return nil
}

func (m *mockMQTTClient) Topics() mqtt.Topics {
	return mqtt.Topics{Prefix: "terrarium"}
}

func (m *mockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// mockIngestor records the batches it receives.
type mockIngestor struct {
	mu      sync.Mutex
	batches [][]telemetry.IncomingReading
	ctxErr  error
	count   int
	err     error
}

func (m *mockIngestor) Ingest(ctx context.Context, batch []telemetry.IncomingReading) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, batch)
	m.ctxErr = ctx.Err()
	if m.err != nil {
		return 0, m.err
	}
	if m.count > 0 {
		return m.count, nil
	}
	return len(batch), nil
}

func (m *mockIngestor) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func (m *mockIngestor) lastBatch() []telemetry.IncomingReading {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.batches) == 0 {
		return nil
	}
	return m.batches[len(m.batches)-1]
}

// testLogger counts log calls per level.
type testLogger struct {
	mu    sync.Mutex
	debug int
	info  int
	warn  int
}

func (l *testLogger) Debug(msg string, args ...any) {
	l.mu.Lock()
	l.debug++
	l.mu.Unlock()
}

func (l *testLogger) Info(msg string, args ...any) {
	l.mu.Lock()
	l.info++
	l.mu.Unlock()
}

func (l *testLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warn++
	l.mu.Unlock()
}

func (l *testLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.warn
}

func newTestBridge(t *testing.T) (*Bridge, *mockMQTTClient, *mockIngestor) {
	t.Helper()

	client := newMockMQTTClient()
	ingestor := &mockIngestor{}

	bridge, err := New(Options{
		Client:   client,
		Ingestor: ingestor,
		QoS:      1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return bridge, client, ingestor
}

func TestNew_Validation(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		_, err := New(Options{Ingestor: &mockIngestor{}})
		if err == nil {
			t.Fatal("New() with nil client should return error")
		}
		if !strings.Contains(err.Error(), "client is required") {
			t.Errorf("New() error = %v, want client is required", err)
		}
	})

	t.Run("nil ingestor", func(t *testing.T) {
		_, err := New(Options{Client: newMockMQTTClient()})
		if err == nil {
			t.Fatal("New() with nil ingestor should return error")
		}
		if !strings.Contains(err.Error(), "ingestor is required") {
			t.Errorf("New() error = %v, want ingestor is required", err)
		}
	})
}

func TestStart_SubscribesToReadingsWildcard(t *testing.T) {
	bridge, client, _ := newTestBridge(t)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	qos, ok := client.subscribed["terrarium/readings/#"]
	if !ok {
		t.Fatalf("Start() subscriptions = %v, want terrarium/readings/#", client.subscribed)
	}
	if qos != 1 {
		t.Errorf("subscription qos = %d, want 1", qos)
	}
}

func TestStart_SubscribeError(t *testing.T) {
	client := newMockMQTTClient()
	client.subscribeErr = mqtt.ErrNotConnected

	bridge, err := New(Options{Client: client, Ingestor: &mockIngestor{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := bridge.Start(); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Start() error = %v, want ErrNotConnected", err)
	}
}

func TestHandleMessage_BatchEnvelope(t *testing.T) {
	bridge, client, ingestor := newTestBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := `{"readings": [
		{"device_key": "tank-1", "metric": "temperature", "value": 24.5, "unit": "c"},
		{"device_key": "tank-1", "metric": "humidity", "value": 81.2, "unit": "pct"}
	]}`

	if err := client.handler("terrarium/readings/tank-1", []byte(payload)); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if ingestor.calls() != 1 {
		t.Fatalf("ingestor calls = %d, want 1", ingestor.calls())
	}
	batch := ingestor.lastBatch()
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
	if batch[0].Metric != "temperature" || batch[1].Metric != "humidity" {
		t.Errorf("batch metrics = %q, %q, want temperature, humidity", batch[0].Metric, batch[1].Metric)
	}

	m := bridge.GetMetrics()
	if m.BatchesReceived != 1 || m.ReadingsIngested != 2 || m.BatchesDropped != 0 {
		t.Errorf("metrics = %+v, want received=1 ingested=2 dropped=0", m)
	}
}

func TestHandleMessage_BareArray(t *testing.T) {
	bridge, client, ingestor := newTestBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := `[{"device_key": "shelf-2", "metric": "illuminance", "value": 412, "unit": "lux"}]`
	if err := client.handler("terrarium/readings/shelf-2", []byte(payload)); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	batch := ingestor.lastBatch()
	if len(batch) != 1 {
		t.Fatalf("batch size = %d, want 1", len(batch))
	}
	if batch[0].DeviceKey != "shelf-2" {
		t.Errorf("device key = %q, want shelf-2", batch[0].DeviceKey)
	}
}

func TestHandleMessage_SingleObject(t *testing.T) {
	bridge, client, ingestor := newTestBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := `{"device_key": "tank-1", "metric": "uv_index", "value": 2.1, "unit": "uv_index"}`
	if err := client.handler("terrarium/readings/tank-1", []byte(payload)); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	batch := ingestor.lastBatch()
	if len(batch) != 1 {
		t.Fatalf("batch size = %d, want 1", len(batch))
	}
	if batch[0].Metric != "uv_index" {
		t.Errorf("metric = %q, want uv_index", batch[0].Metric)
	}
}

func TestHandleMessage_DeviceKeyFromTopic(t *testing.T) {
	bridge, client, ingestor := newTestBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Bare firmware publishing to its own topic, no device_key in payload.
	payload := `{"metric": "temperature", "value": 22.8, "unit": "c"}`
	if err := client.handler("terrarium/readings/basking-ledge", []byte(payload)); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	batch := ingestor.lastBatch()
	if batch[0].DeviceKey != "basking-ledge" {
		t.Errorf("device key = %q, want basking-ledge (from topic)", batch[0].DeviceKey)
	}
}

func TestHandleMessage_DeviceKeyNotOverwritten(t *testing.T) {
	bridge, client, ingestor := newTestBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := `{"device_key": "tank-1", "metric": "temperature", "value": 22.8, "unit": "c"}`
	if err := client.handler("terrarium/readings/other-topic", []byte(payload)); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	batch := ingestor.lastBatch()
	if batch[0].DeviceKey != "tank-1" {
		t.Errorf("device key = %q, want tank-1 (payload wins)", batch[0].DeviceKey)
	}
}

func TestHandleMessage_MalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"truncated json", `{"readings": [`},
		{"empty payload", ``},
		{"whitespace only", `   `},
		{"scalar", `42`},
		{"string", `"not a reading"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge, client, ingestor := newTestBridge(t)
			logger := &testLogger{}
			bridge.SetLogger(logger)
			if err := bridge.Start(); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			if err := client.handler("terrarium/readings/tank-1", []byte(tt.payload)); err != nil {
				t.Fatalf("handler error = %v, want nil (drop, not fail)", err)
			}

			if ingestor.calls() != 0 {
				t.Errorf("ingestor calls = %d, want 0", ingestor.calls())
			}
			m := bridge.GetMetrics()
			if m.BatchesDropped != 1 {
				t.Errorf("dropped = %d, want 1", m.BatchesDropped)
			}
			if logger.warnCount() != 1 {
				t.Errorf("warn count = %d, want 1", logger.warnCount())
			}
		})
	}
}

func TestHandleMessage_EmptyEnvelope(t *testing.T) {
	bridge, client, ingestor := newTestBridge(t)
	ingestor.err = telemetry.ErrEmptyBatch
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// An envelope with no readings decodes fine; the ingestor rejects it.
	if err := client.handler("terrarium/readings/tank-1", []byte(`{"readings": []}`)); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if ingestor.calls() != 1 {
		t.Fatalf("ingestor calls = %d, want 1", ingestor.calls())
	}
	if got := len(ingestor.lastBatch()); got != 0 {
		t.Errorf("batch size = %d, want 0", got)
	}
	if m := bridge.GetMetrics(); m.BatchesDropped != 1 {
		t.Errorf("dropped = %d, want 1", m.BatchesDropped)
	}
}

func TestHandleMessage_IngestRejection(t *testing.T) {
	bridge, client, ingestor := newTestBridge(t)
	ingestor.err = telemetry.ErrMissingFields
	logger := &testLogger{}
	bridge.SetLogger(logger)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := `{"metric": "temperature", "value": 22.8}`
	if err := client.handler("terrarium/readings/tank-1", []byte(payload)); err != nil {
		t.Fatalf("handler error = %v, want nil (drop, not fail)", err)
	}

	m := bridge.GetMetrics()
	if m.BatchesReceived != 1 || m.ReadingsIngested != 0 || m.BatchesDropped != 1 {
		t.Errorf("metrics = %+v, want received=1 ingested=0 dropped=1", m)
	}
	if logger.warnCount() != 1 {
		t.Errorf("warn count = %d, want 1", logger.warnCount())
	}
}

func TestStop_Idempotent(t *testing.T) {
	bridge, client, _ := newTestBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	bridge.Stop()
	bridge.Stop()

	client.mu.Lock()
	defer client.mu.Unlock()
	if client.unsubCalls != 1 {
		t.Errorf("unsubscribe calls = %d, want 1", client.unsubCalls)
	}
}

func TestStop_CancelsIngestContext(t *testing.T) {
	bridge, client, ingestor := newTestBridge(t)
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	bridge.Stop()

	// A message arriving after Stop still reaches the ingestor, but with a
	// cancelled context so storage work bails out immediately.
	payload := `{"device_key": "tank-1", "metric": "temperature", "value": 22.8, "unit": "c"}`
	if err := client.handler("terrarium/readings/tank-1", []byte(payload)); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	ingestor.mu.Lock()
	defer ingestor.mu.Unlock()
	if !errors.Is(ingestor.ctxErr, context.Canceled) {
		t.Errorf("ingest ctx err = %v, want context.Canceled", ingestor.ctxErr)
	}
}

func TestGetMetrics_Connected(t *testing.T) {
	bridge, client, _ := newTestBridge(t)

	if m := bridge.GetMetrics(); !m.Connected {
		t.Error("Connected = false, want true")
	}

	client.mu.Lock()
	client.connected = false
	client.mu.Unlock()

	if m := bridge.GetMetrics(); m.Connected {
		t.Error("Connected = true, want false")
	}
}

func TestDecodeBatch(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{"envelope", `{"readings": [{"metric": "temperature"}, {"metric": "humidity"}]}`, 2, false},
		{"bare array", `[{"metric": "temperature"}]`, 1, false},
		{"single object", `{"metric": "temperature"}`, 1, false},
		{"empty envelope", `{"readings": []}`, 0, false},
		{"empty array", `[]`, 0, false},
		{"leading whitespace", "\n\t  [{\"metric\": \"temperature\"}]", 1, false},
		{"empty", ``, 0, true},
		{"scalar", `7`, 0, true},
		{"bad array element", `[{"metric": }]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := decodeBatch([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeBatch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(batch) != tt.want {
				t.Errorf("decodeBatch() size = %d, want %d", len(batch), tt.want)
			}
		})
	}
}
