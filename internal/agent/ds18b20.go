package agent

import "path/filepath"

// ds18b20 reads a Maxim DS18B20 temperature probe over the 1-Wire bus.
type ds18b20 struct {
	sensorMeta
	dir string
}

func newDS18B20(cfg SensorConfig) (*ds18b20, error) {
	dir, err := resolveW1Device(cfg)
	if err != nil {
		return nil, err
	}
	return &ds18b20{sensorMeta: newSensorMeta(cfg), dir: dir}, nil
}

// Read samples the probe temperature.
func (s *ds18b20) Read() ([]Value, error) {
	if !s.wants("temperature_c") {
		return nil, nil
	}

	// temperature is milli-degrees Celsius
	v, err := readScaledFile(filepath.Join(s.dir, "temperature"), 0.001)
	if err != nil {
		return nil, err
	}
	return []Value{{Metric: "temperature", Value: v, Unit: "c"}}, nil
}
