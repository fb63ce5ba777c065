// Package mqttingest bridges MQTT-published readings into the ingestion path.
//
// Field agents and bare sensor firmware publish reading batches to
// <prefix>/readings/<deviceKey>. The bridge subscribes to the readings
// wildcard and hands every decoded batch to the same telemetry.Ingestor
// that serves the HTTP API, so both transports share one validation,
// provisioning, and broadcast path.
//
// MQTT delivery is fire-and-forget from the publisher's point of view.
// Payloads that fail to decode or fail validation are logged and dropped;
// there is no error channel back to the device. Counters exposed via
// GetMetrics let the system metrics endpoint surface drop rates.
//
// Usage:
//
//	bridge, err := mqttingest.New(mqttingest.Options{
//		Client:   mqttClient,
//		Ingestor: ingestor,
//		QoS:      byte(cfg.MQTT.QoS),
//		Logger:   log,
//	})
//	if err != nil {
//		return err
//	}
//	if err := bridge.Start(); err != nil {
//		return err
//	}
//	defer bridge.Stop()
package mqttingest
