package agent

import "path/filepath"

// bh1750 reads the ROHM BH1750 ambient light sensor through the kernel
// IIO driver.
type bh1750 struct {
	sensorMeta
	dir string
}

func newBH1750(cfg SensorConfig) (*bh1750, error) {
	dir, err := resolveIIODevice(cfg, "bh1750")
	if err != nil {
		return nil, err
	}
	return &bh1750{sensorMeta: newSensorMeta(cfg), dir: dir}, nil
}

// Read samples the illuminance in lux.
func (s *bh1750) Read() ([]Value, error) {
	if !s.wants("illuminance") {
		return nil, nil
	}

	v, err := readScaledFile(filepath.Join(s.dir, "in_illuminance_input"), 1)
	if err != nil {
		return nil, err
	}
	return []Value{{Metric: "illuminance", Value: v, Unit: "lux"}}, nil
}
