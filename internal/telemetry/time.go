package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are the accepted ISO 8601 shapes, tried in order.
// The fractional-second digits in each layout are optional, so
// "2025-08-09T07:30:00" and "2025-08-09T07:30:00.125" both match the
// offset-free layout.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses an ISO 8601 timestamp and normalises it to UTC.
// Timestamps carrying a zone offset are converted; offset-free timestamps
// are interpreted as already UTC.
func ParseTimestamp(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, ErrTimestampRequired
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err == nil {
			return parsed.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q is not ISO 8601", ErrInvalidTimestamp, value)
}

// FormatTimestamp renders a timestamp the way the API emits them: RFC 3339
// in UTC, with sub-second precision only when present.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
