package telemetry

import "errors"

// Validation errors returned by Ingest and the query layer. Their messages
// are surfaced verbatim in API error responses, so they carry the wire
// wording rather than the package-prefixed form used elsewhere.
var (
	// ErrEmptyBatch is returned when an ingest request carries no readings.
	ErrEmptyBatch = errors.New("readings must be a non-empty list")

	// ErrMissingFields is returned when a reading omits a required field.
	ErrMissingFields = errors.New("device_key, metric, value, and unit are required")

	// ErrValueNotNumber is returned when a reading value cannot be coerced
	// to a finite float64.
	ErrValueNotNumber = errors.New("value must be a number")

	// ErrRangeFieldsRequired is returned when a range query omits the
	// device key or metric filter.
	ErrRangeFieldsRequired = errors.New("device_key and metric are required")

	// ErrTimestampRequired is returned when an empty timestamp is parsed.
	ErrTimestampRequired = errors.New("timestamp value is required")

	// ErrInvalidTimestamp wraps timestamps that could not be parsed as
	// ISO 8601. Use errors.Is to detect it.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)
