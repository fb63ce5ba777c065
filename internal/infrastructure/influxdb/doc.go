// Package influxdb provides the optional write-through reading mirror.
//
// It wraps the official influxdb-client-go v2 library. SQLite remains the
// source of truth for every API query; the mirror exists so long-range
// dashboards (Grafana and friends) can chart months of terrarium history
// without hammering the embedded database.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "sablewood",
//	    Bucket:  "readings",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    // ErrDisabled when the mirror is off - not a failure
//	}
//	defer client.Close()
//
//	client.WriteReading("ambient_bme280", "temperature", 27.9, "c", recordedAt)
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned
// directly. A failing mirror never fails ingestion.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This keeps mirror overhead negligible next to the
// SQLite insert path.
package influxdb
