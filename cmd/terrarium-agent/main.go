// Terrarium Agent - Field Sensor Poller
//
// This is the main entry point for the terrarium agent. It runs on the
// Raspberry Pi inside the vivarium enclosure, polls the attached sensors
// through the kernel's sysfs interfaces, and delivers readings to the
// collector over HTTP or MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sablewood/terrarium-core/internal/agent"
	"github.com/sablewood/terrarium-core/internal/infrastructure/logging"
	"github.com/sablewood/terrarium-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "/etc/terrarium-agent/config.yaml"

func main() {
	configFlag := flag.String("config", "", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("terrarium-agent %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, resolveConfigPath(*configFlag)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the agent together and polls until the context is cancelled.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to the YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing startup failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting terrarium agent",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := agent.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "sensors", len(cfg.Sensors))

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	sink, cleanup, err := buildSink(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// Every sensor adapter resolves its device directory now, so missing
	// hardware fails at startup rather than silently polling nothing.
	tasks, err := agent.BuildTasks(cfg.Sensors)
	if err != nil {
		return fmt.Errorf("building sensors: %w", err)
	}
	log.Info("sensors ready", "count", len(tasks))

	scheduler := agent.NewScheduler(tasks, sink, log)
	scheduler.Run(ctx)

	log.Info("terrarium agent stopped")
	return nil
}

// buildSink constructs the delivery transport the config selects. The
// returned cleanup closes the MQTT connection when one was opened.
//
// Parameters:
//   - cfg: Loaded agent configuration
//   - log: Logger instance
//
// Returns:
//   - agent.Sink: Transport for reading batches
//   - func(): Cleanup to run on shutdown
//   - error: If the MQTT connection fails
func buildSink(cfg *agent.Config, log *logging.Logger) (agent.Sink, func(), error) {
	if cfg.API.Transport == agent.TransportMQTT {
		clientCfg, err := cfg.MQTTClientConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("resolving MQTT settings: %w", err)
		}

		mqttClient, err := mqtt.Connect(clientCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		log.Info("MQTT connected",
			"broker", cfg.MQTT.Broker,
			"client_id", cfg.MQTT.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		cleanup := func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}
		return agent.NewMQTTSink(mqttClient, byte(cfg.MQTT.QoS)), cleanup, nil
	}

	log.Info("delivering readings over HTTP", "url", cfg.API.URL)
	return agent.NewHTTPSink(cfg.API.URL, cfg.GetTimeout()), func() {}, nil
}

// resolveConfigPath returns the configuration file path.
// Flag value wins, then the TERRARIUM_AGENT_CONFIG environment
// variable, then the default.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("TERRARIUM_AGENT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
