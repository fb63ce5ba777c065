package device

import (
	"fmt"
	"strings"
)

// Validation constants.
const (
	maxKeyLength  = 64
	maxNameLength = 120
	maxMetaLength = 120 // model and location
)

// ValidateDevice performs validation on a device prior to persistence.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateKey(d.Key); err != nil {
		return err
	}
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if d.PollIntervalSec <= 0 {
		return fmt.Errorf("%w: must be a positive integer, got %d", ErrInvalidPollInterval, d.PollIntervalSec)
	}

	if d.Model != nil && len(*d.Model) > maxMetaLength {
		return fmt.Errorf("%w: model exceeds %d characters", ErrInvalidDevice, maxMetaLength)
	}
	if d.Location != nil && len(*d.Location) > maxMetaLength {
		return fmt.Errorf("%w: location exceeds %d characters", ErrInvalidDevice, maxMetaLength)
	}

	return nil
}

// ValidateKey checks if a device key is valid.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: key exceeds %d characters", ErrInvalidKey, maxKeyLength)
	}
	return nil
}

// ValidateName checks if a device name is valid.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}
