package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading mirrors one ingested reading to InfluxDB.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Failures surface through the SetOnError callback and never reach the
// ingestion path. The signature matches what the ingestor expects from a
// mirror, so a connected Client can be handed to it directly.
//
// Measurement: reading
// Tags: device, metric, unit (low cardinality - keys, not values)
// Field: value
// Timestamp: the reading's recorded_at, not the mirror write time
//
// Example:
//
//	client.WriteReading("ambient_bme280", "temperature", 27.9, "c", recordedAt)
func (c *Client) WriteReading(deviceKey, metric string, value float64, unit string, recordedAt time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"reading",
		map[string]string{
			"device": deviceKey,
			"metric": metric,
			"unit":   unit,
		},
		map[string]interface{}{
			"value": value,
		},
		recordedAt,
	)

	c.writeAPI.WritePoint(point)
}
