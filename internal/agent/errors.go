package agent

import "errors"

// Domain errors for the agent package.
var (
	// ErrUnknownSensorType is returned when a sensor config names a type
	// with no adapter.
	ErrUnknownSensorType = errors.New("agent: unknown sensor type")

	// ErrDeviceNotFound is returned when a sensor's sysfs device cannot
	// be located.
	ErrDeviceNotFound = errors.New("agent: sensor device not found")
)
