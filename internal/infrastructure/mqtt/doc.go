// Package mqtt provides MQTT client connectivity for terrarium-core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the optional transport between field agents and the server. Agents
// publish reading batches to per-device topics; the server's ingest bridge
// subscribes to the readings wildcard and feeds batches into the same
// ingestion path the HTTP API uses.
//
//	terrarium-agent → MQTT Broker → terrariumd (ingest bridge)
//
// All topics live under a configurable prefix (default "terrarium") so
// several installations can share one broker:
//
//	terrarium/readings/{device_key}   reading batches from agents
//	terrarium/status/{client_id}      online/offline announcements + LWT
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to reading batches from every device
//	err = client.Subscribe(client.Topics().AllReadings(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a batch for one device
//	topic := client.Topics().Readings("ambient_bme280")
//	client.Publish(topic, batchJSON, 1, false)
package mqtt
