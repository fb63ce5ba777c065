package alert

import "errors"

// Internal sentinels.
var (
	// ErrRuleNotFound indicates the requested rule does not exist.
	ErrRuleNotFound = errors.New("alert: rule not found")

	// ErrRuleExists indicates a rule with the same ID already exists.
	ErrRuleExists = errors.New("alert: rule already exists")
)

// Validation errors surfaced verbatim in API error responses, so they carry
// the wire wording rather than the package-prefixed form.
var (
	// ErrFieldsRequired is returned when metric, channel, or target is missing.
	ErrFieldsRequired = errors.New("metric, channel, and target are required")

	// ErrThresholdNotNumber is returned when min_value or max_value cannot
	// be coerced to a number.
	ErrThresholdNotNumber = errors.New("min_value and max_value must be numbers")
)
