// Terrarium Core - Vivarium Telemetry Collector
//
// This is the main entry point for the terrarium collector daemon. It
// receives sensor readings from field agents over HTTP and MQTT, stores
// them in SQLite, mirrors them to InfluxDB when configured, and serves
// the REST and WebSocket API the dashboard consumes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/sablewood/terrarium-core/migrations"

	"github.com/sablewood/terrarium-core/internal/alert"
	"github.com/sablewood/terrarium-core/internal/api"
	"github.com/sablewood/terrarium-core/internal/bridges/mqttingest"
	"github.com/sablewood/terrarium-core/internal/device"
	"github.com/sablewood/terrarium-core/internal/infrastructure/config"
	"github.com/sablewood/terrarium-core/internal/infrastructure/database"
	"github.com/sablewood/terrarium-core/internal/infrastructure/influxdb"
	"github.com/sablewood/terrarium-core/internal/infrastructure/logging"
	"github.com/sablewood/terrarium-core/internal/infrastructure/mqtt"
	"github.com/sablewood/terrarium-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "/etc/terrarium/config.yaml"

func main() {
	configFlag := flag.String("config", "", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	healthProbe := flag.Bool("health", false, "probe the running collector and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("terrariumd %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath := resolveConfigPath(*configFlag)

	if *healthProbe {
		if err := probeHealth(ctx, configPath); err != nil {
			fmt.Fprintf(os.Stderr, "unhealthy: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("ok")
		return
	}

	if err := run(ctx, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to the YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting terrarium collector",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.SqlDB())
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)

	// Seed the stock sensor set before the cache loads, so a fresh
	// install starts with known devices.
	if cfg.Seed.Defaults {
		if seedErr := device.SeedDefaults(ctx, deviceRepo, log); seedErr != nil {
			return fmt.Errorf("seeding default devices: %w", seedErr)
		}
	}

	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.GetDeviceCount())

	// Telemetry pipeline: store, ingestor, query service
	store := telemetry.NewSQLiteStore(db.SqlDB())
	ingestor := telemetry.NewIngestor(store, deviceRegistry)
	ingestor.SetLogger(log)
	queries := telemetry.NewQueries(store, deviceRegistry)

	// Alert rule repository
	alertRepo := alert.NewSQLiteRepository(db.SqlDB())

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		ingestor.SetMirror(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to MQTT broker and start the ingest bridge (optional)
	var mqttClient *mqtt.Client
	var bridge *mqttingest.Bridge
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		bridge, err = mqttingest.New(mqttingest.Options{
			Client:   mqttClient,
			Ingestor: ingestor,
			QoS:      byte(cfg.MQTT.QoS),
			Logger:   log,
		})
		if err != nil {
			return fmt.Errorf("creating ingest bridge: %w", err)
		}
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting ingest bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping ingest bridge")
			bridge.Stop()
		}()
		log.Info("MQTT ingest bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// Start the API server
	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		DB:       db,
		Devices:  deviceRegistry,
		Ingestor: ingestor,
		Queries:  queries,
		Alerts:   alertRepo,
		Influx:   influxClient,
		Version:  version,
	}
	// Only assign the interface when a bridge exists, so the metrics
	// handler's nil check holds.
	if bridge != nil {
		deps.Bridge = bridge
	}

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Live events flow ingestor -> hub -> subscribed dashboards.
	ingestor.SetBroadcaster(srv.Hub())

	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, srv); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Ingest bridge and MQTT (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. Database

	log.Info("terrarium collector stopped")
	return nil
}

// resolveConfigPath returns the configuration file path.
// Flag value wins, then the TERRARIUM_CONFIG environment variable,
// then the default.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("TERRARIUM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - srv: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, srv *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := srv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

// probeHealth hits the running collector's health endpoint, for use as
// a container health check.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - configPath: Path to the YAML configuration file, read for the API address
//
// Returns:
//   - error: nil when the collector responds healthy
func probeHealth(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	host := cfg.API.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	url := fmt.Sprintf("http://%s:%d/api/health", host, cfg.API.Port)

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("reaching collector: %w", err)
	}
	defer resp.Body.Close()
	//nolint:errcheck // Drain so the connection can be reused
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("collector returned %d", resp.StatusCode)
	}
	return nil
}
