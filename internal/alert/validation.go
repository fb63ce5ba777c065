package alert

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeRule validates an incoming payload and builds the rule to store.
// Metric, channel, and target are required; thresholds are optional but must
// be numeric when present; enabled defaults to true when omitted.
//
// The rule ID is assigned by the repository on create.
func NormalizeRule(payload IncomingRule) (*Rule, error) {
	if payload.Metric == "" || payload.Channel == "" || payload.Target == "" {
		return nil, ErrFieldsRequired
	}

	minValue, err := coerceThreshold(payload.MinValue)
	if err != nil {
		return nil, err
	}
	maxValue, err := coerceThreshold(payload.MaxValue)
	if err != nil {
		return nil, err
	}

	enabled := true
	if payload.Enabled != nil {
		enabled = *payload.Enabled
	}

	return &Rule{
		Metric:   payload.Metric,
		MinValue: minValue,
		MaxValue: maxValue,
		Channel:  payload.Channel,
		Target:   payload.Target,
		Enabled:  enabled,
	}, nil
}

// coerceThreshold converts an optional wire value into a finite float64,
// returning nil when the value is absent.
func coerceThreshold(raw any) (*float64, error) {
	if raw == nil {
		return nil, nil
	}

	var value float64
	switch v := raw.(type) {
	case float64:
		value = v
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, ErrThresholdNotNumber
		}
		value = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, ErrThresholdNotNumber
		}
		value = parsed
	default:
		return nil, ErrThresholdNotNumber
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrThresholdNotNumber
	}
	return &value, nil
}
