// Package api implements the HTTP REST API and WebSocket server for
// terrarium-core.
//
// This package provides:
//   - REST endpoints for sensor listings, reading ingestion and queries,
//     the dashboard summary, and alert rule management
//   - WebSocket hub broadcasting reading.ingested and device.provisioned
//     events to dashboard clients
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The API server sits between dashboard clients and the telemetry pipeline.
// Reading batches arrive via POST /api/measurements (field agents) and are
// handed to the shared telemetry.Ingestor, which also serves the MQTT ingest
// bridge, so both transports validate and provision identically. Successful
// ingests are broadcast to WebSocket subscribers through the hub.
//
// # Graceful Degradation
//
// The server operates without the MQTT bridge or the InfluxDB mirror; those
// sections simply disappear from the system metrics payload. SQLite is the
// source of truth throughout.
package api
