package agent

import "path/filepath"

// bme280 reads the Bosch BME280 climate sensor through the kernel IIO
// driver.
type bme280 struct {
	sensorMeta
	dir string
}

func newBME280(cfg SensorConfig) (*bme280, error) {
	dir, err := resolveIIODevice(cfg, "bme280")
	if err != nil {
		return nil, err
	}
	return &bme280{sensorMeta: newSensorMeta(cfg), dir: dir}, nil
}

// Read samples temperature, humidity, and pressure, honouring the
// metric filter.
func (s *bme280) Read() ([]Value, error) {
	var values []Value

	if s.wants("temperature_c") {
		// in_temp_input is milli-degrees Celsius
		v, err := readScaledFile(filepath.Join(s.dir, "in_temp_input"), 0.001)
		if err != nil {
			return nil, err
		}
		values = append(values, Value{Metric: "temperature", Value: v, Unit: "c"})
	}

	if s.wants("humidity_pct") {
		// in_humidityrelative_input is milli-percent relative humidity
		v, err := readScaledFile(filepath.Join(s.dir, "in_humidityrelative_input"), 0.001)
		if err != nil {
			return nil, err
		}
		values = append(values, Value{Metric: "humidity", Value: v, Unit: "pct"})
	}

	if s.wants("pressure_hpa") {
		// in_pressure_input is kilopascal
		v, err := readScaledFile(filepath.Join(s.dir, "in_pressure_input"), 10)
		if err != nil {
			return nil, err
		}
		values = append(values, Value{Metric: "pressure", Value: v, Unit: "hpa"})
	}

	return values, nil
}
