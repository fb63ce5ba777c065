package agent

import "path/filepath"

// ltr390 reads the Lite-On LTR390 UV and ambient light sensor through
// the kernel IIO driver.
type ltr390 struct {
	sensorMeta
	dir string
}

func newLTR390(cfg SensorConfig) (*ltr390, error) {
	dir, err := resolveIIODevice(cfg, "ltr390")
	if err != nil {
		return nil, err
	}
	return &ltr390{sensorMeta: newSensorMeta(cfg), dir: dir}, nil
}

// Read samples the UV index and ambient light level, honouring the
// metric filter.
func (s *ltr390) Read() ([]Value, error) {
	var values []Value

	if s.wants("uv_index") {
		v, err := readScaledFile(filepath.Join(s.dir, "in_uvindex_input"), 1)
		if err != nil {
			return nil, err
		}
		values = append(values, Value{Metric: "uv_index", Value: v, Unit: "uv_index"})
	}

	if s.wants("ambient_light") {
		v, err := readScaledFile(filepath.Join(s.dir, "in_illuminance_input"), 1)
		if err != nil {
			return nil, err
		}
		values = append(values, Value{Metric: "ambient_light", Value: v, Unit: "als"})
	}

	return values, nil
}
