// Package agent implements the sensor polling daemon that feeds the
// terrarium collector.
//
// The agent runs on the Raspberry Pi wired to the enclosure's sensors.
// It polls each configured sensor on its own interval and delivers the
// readings to the collector, which provisions unknown devices from the
// metadata carried on each reading.
//
// # Architecture
//
// The agent is a single polling loop over pluggable parts:
//
//	┌──────────┐  Read()  ┌───────────┐  Send()  ┌───────────┐
//	│ adapters │─────────►│ Scheduler │─────────►│   Sink    │──► collector
//	│ (sysfs)  │          │           │          │ http/mqtt │
//	└──────────┘          └───────────┘          └───────────┘
//
// # Sensors
//
// Adapters read hardware through the kernel's sysfs interfaces: the IIO
// bus for I2C sensors (BME280, LTR390, BH1750) and the 1-Wire bus for
// DS18B20 probes. Devices are discovered by driver name, so a minimal
// config only needs a key and a type:
//
//	sensors:
//	  - key: ambient_bme280
//	    type: bme280
//	    location: "upper canopy"
//	    interval_sec: 30
//
// # Scheduling
//
// Every sensor polls on its own interval. A pass reads all due sensors,
// posts the combined readings as one batch, and reschedules each sensor
// to now + interval, so slow reads delay the next poll instead of
// compressing it. Read and delivery failures are logged and skipped;
// the agent keeps no local queue.
//
// # Transports
//
// Readings reach the collector either as HTTP posts to the measurements
// endpoint or as MQTT publishes to the per-device readings topics. Both
// carry the same JSON records, and the collector validates them
// identically.
package agent
