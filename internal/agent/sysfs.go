package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sysfs roots for sensor discovery. Package variables so tests can point
// them at fixture trees.
var (
	iioDeviceDir = "/sys/bus/iio/devices"
	w1DeviceDir  = "/sys/bus/w1/devices"
)

// readScaledFile reads a sysfs value file holding a single number and
// applies the unit scale.
func readScaledFile(path string, scale float64) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	raw := strings.TrimSpace(string(data))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %q is not a number", path, raw)
	}
	return value * scale, nil
}

// resolveIIODevice returns the IIO device directory for a sensor. An
// explicit device path wins; otherwise the IIO bus is scanned for the
// driver name, with the I2C address breaking ties.
func resolveIIODevice(cfg SensorConfig, driver string) (string, error) {
	if cfg.Device != "" {
		if _, err := os.Stat(cfg.Device); err != nil {
			return "", fmt.Errorf("sensor %s: %w", cfg.Key, err)
		}
		return cfg.Device, nil
	}
	return findIIODevice(iioDeviceDir, driver, cfg.Address)
}

// findIIODevice scans an IIO bus directory for a device whose name file
// matches the driver. When several match, a configured I2C address picks
// the one whose resolved device path carries that address; otherwise the
// first match wins.
func findIIODevice(base, driver, address string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("scanning %s: %w", base, err)
	}

	var matches []string
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "iio:device") {
			continue
		}
		dir := filepath.Join(base, entry.Name())
		name, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(name)) == driver {
			matches = append(matches, dir)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no iio device named %q under %s", ErrDeviceNotFound, driver, base)
	case 1:
		return matches[0], nil
	}

	if suffix := addressSuffix(address); suffix != "" {
		for _, dir := range matches {
			resolved, err := filepath.EvalSymlinks(dir)
			if err != nil {
				continue
			}
			if strings.Contains(resolved, suffix) {
				return dir, nil
			}
		}
	}
	return matches[0], nil
}

// addressSuffix converts an I2C address such as "0x76" into the "-0076"
// fragment sysfs embeds in I2C device paths.
func addressSuffix(address string) string {
	if address == "" {
		return ""
	}
	value, err := parseI2CAddress(address)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("-%04x", value)
}

// resolveW1Device returns the 1-Wire probe directory for a ds18b20
// sensor. An explicit device path wins, then the configured probe id,
// then the first DS18B20 family probe on the bus.
func resolveW1Device(cfg SensorConfig) (string, error) {
	if cfg.Device != "" {
		if _, err := os.Stat(cfg.Device); err != nil {
			return "", fmt.Errorf("sensor %s: %w", cfg.Key, err)
		}
		return cfg.Device, nil
	}
	if cfg.SensorID != "" {
		dir := filepath.Join(w1DeviceDir, cfg.SensorID)
		if _, err := os.Stat(dir); err != nil {
			return "", fmt.Errorf("sensor %s: %w", cfg.Key, err)
		}
		return dir, nil
	}
	return findW1Device(w1DeviceDir)
}

// findW1Device returns the first DS18B20 probe (family code 28) on the
// 1-Wire bus. ReadDir sorts entries, so the choice is stable.
func findW1Device(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("scanning %s: %w", base, err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "28-") {
			return filepath.Join(base, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: no 1-wire temperature probe under %s", ErrDeviceNotFound, base)
}
