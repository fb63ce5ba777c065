package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sablewood/terrarium-core/internal/telemetry"
)

// Sink delivers a batch of readings to the collector.
type Sink interface {
	Send(ctx context.Context, batch []telemetry.IncomingReading) error
}

// HTTPSink posts reading batches to the collector's measurements
// endpoint.
type HTTPSink struct {
	url    string
	client *http.Client
}

// NewHTTPSink creates a sink posting to the given measurements URL.
func NewHTTPSink(url string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts the batch as a single ingestion request. A non-2xx status
// fails this delivery only; the caller decides whether to retry.
func (s *HTTPSink) Send(ctx context.Context, batch []telemetry.IncomingReading) error {
	payload, err := json.Marshal(map[string]any{"readings": batch})
	if err != nil {
		return fmt.Errorf("encoding readings: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting readings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		//nolint:errcheck // Body is best-effort error detail
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("collector returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
