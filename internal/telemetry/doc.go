// Package telemetry is the heart of the reading pipeline: the shared
// reading model, batch ingestion with on-the-fly device provisioning, and
// the query side serving range and summary reads.
//
// Ingestion is transport-agnostic. The HTTP API and the MQTT bridge both
// feed the same Ingestor, which validates each record, normalises
// timestamps to UTC, and applies the whole batch in a single transaction.
// Devices unknown at ingest time are provisioned inside that transaction
// from metadata carried on the first reading.
//
//	ingestor := telemetry.NewIngestor(store, registry)
//	count, err := ingestor.Ingest(ctx, batch)
//
// The summary is a windowed approximation: it reduces the newest N
// readings across all devices to the freshest sample per (device, metric)
// pair. A device that has not reported within the window simply drops out
// of the summary rather than pinning a stale value forever.
package telemetry
