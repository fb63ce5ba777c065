// Terrarium Seed - Sample Data Generator
//
// Fills the collector's database with a plausible day of sensor
// readings so the dashboard has curves to show before real agents
// report in. Temperatures follow a sine day cycle, light metrics follow
// a daylight curve, and a seeded generator adds repeatable jitter.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/sablewood/terrarium-core/migrations"

	"github.com/sablewood/terrarium-core/internal/device"
	"github.com/sablewood/terrarium-core/internal/infrastructure/config"
	"github.com/sablewood/terrarium-core/internal/infrastructure/database"
	"github.com/sablewood/terrarium-core/internal/infrastructure/logging"
	"github.com/sablewood/terrarium-core/internal/telemetry"
)

// Default configuration file path
const defaultConfigPath = "/etc/terrarium/config.yaml"

// Version information - set at build time via ldflags
var version = "dev"

// seededKeys are the device keys the sample series is generated for.
// They match the stock sensor set installed by the collector.
var seededKeys = []string{
	"ambient_bme280",
	"uv_ltr390",
	"probe_ds18b20",
	"ambient_bh1750",
}

type options struct {
	configPath  string
	hours       int
	intervalMin int
	seed        uint64
	clear       bool
}

func main() {
	configFlag := flag.String("config", "", "path to the collector configuration file")
	hours := flag.Int("hours", 12, "span of sample history to generate")
	intervalMin := flag.Int("interval-min", 5, "minutes between samples")
	seed := flag.Uint64("seed", 7, "random seed for repeatable jitter")
	clear := flag.Bool("clear", false, "delete existing readings first")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := options{
		configPath:  resolveConfigPath(*configFlag),
		hours:       *hours,
		intervalMin: *intervalMin,
		seed:        *seed,
		clear:       *clear,
	}

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run generates and inserts the sample series.
//
// Parameters:
//   - ctx: Context for cancellation
//   - opts: Parsed command line options
//
// Returns:
//   - error: nil when the series was stored
func run(ctx context.Context, opts options) error {
	if opts.hours < 1 {
		return fmt.Errorf("hours must be at least 1")
	}
	if opts.intervalMin < 1 {
		return fmt.Errorf("interval-min must be at least 1")
	}

	log := logging.Default()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}

	// Install the stock sensors when the table is empty, then confirm
	// every key the series targets exists.
	repo := device.NewSQLiteRepository(db.SqlDB())
	if seedErr := device.SeedDefaults(ctx, repo, log); seedErr != nil {
		return fmt.Errorf("seeding default devices: %w", seedErr)
	}
	for _, key := range seededKeys {
		if _, getErr := repo.GetByKey(ctx, key); getErr != nil {
			return fmt.Errorf("missing sensor %s: %w", key, getErr)
		}
	}

	if opts.clear {
		result, clearErr := db.SqlDB().ExecContext(ctx, "DELETE FROM readings")
		if clearErr != nil {
			return fmt.Errorf("clearing readings: %w", clearErr)
		}
		if removed, raErr := result.RowsAffected(); raErr == nil {
			log.Info("existing readings cleared", "count", removed)
		}
	}

	steps := opts.hours*60/opts.intervalMin + 1
	interval := time.Duration(opts.intervalMin) * time.Minute
	end := time.Now().UTC()
	start := end.Add(-time.Duration(opts.hours) * time.Hour)

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))
	readings := buildReadings(start, steps, interval, rng)

	store := telemetry.NewSQLiteStore(db.SqlDB())
	if _, insertErr := store.InsertBatch(ctx, readings, nil); insertErr != nil {
		return fmt.Errorf("inserting sample readings: %w", insertErr)
	}

	fmt.Printf("Seeded sample data to %s (%d points per metric over %dh)\n",
		cfg.Database.Path, steps, opts.hours)
	return nil
}

// buildReadings generates the sample series. Each step yields seven
// readings across the four stock sensors: a day-cycle sine drives the
// temperatures, humidity moves inversely to it, and a daylight curve
// drives the UV and light channels.
func buildReadings(start time.Time, steps int, interval time.Duration, rng *rand.Rand) []telemetry.Reading {
	readings := make([]telemetry.Reading, 0, steps*7)

	for index := 0; index < steps; index++ {
		recordedAt := start.Add(time.Duration(index) * interval)
		position := float64(index) / float64(max(1, steps-1))
		cycle := math.Sin(2*math.Pi*position - 0.4)
		daylight := math.Max(0, math.Sin(math.Pi*position))

		ambientTemp := 25.2 + 1.8*cycle + uniform(rng, -0.2, 0.2)
		hideTemp := 29.5 + 1.2*cycle + uniform(rng, -0.2, 0.2)
		humidity := clamp(60-6*cycle+uniform(rng, -1.5, 1.5), 35, 90)
		pressure := 1012 + 1.4*math.Sin(2*math.Pi*position+0.6) + uniform(rng, -0.4, 0.4)

		uvIndex := math.Max(0, daylight*4.2+uniform(rng, -0.2, 0.2))
		als := math.Max(0, daylight*2200+uniform(rng, -40, 40))
		illuminance := math.Max(0, daylight*1200+uniform(rng, -30, 30))

		readings = append(readings,
			telemetry.Reading{DeviceKey: "ambient_bme280", Metric: "temperature", Value: ambientTemp, Unit: "c", RecordedAt: recordedAt},
			telemetry.Reading{DeviceKey: "ambient_bme280", Metric: "humidity", Value: humidity, Unit: "pct", RecordedAt: recordedAt},
			telemetry.Reading{DeviceKey: "ambient_bme280", Metric: "pressure", Value: pressure, Unit: "hpa", RecordedAt: recordedAt},
			telemetry.Reading{DeviceKey: "uv_ltr390", Metric: "uv_index", Value: uvIndex, Unit: "uv_index", RecordedAt: recordedAt},
			telemetry.Reading{DeviceKey: "uv_ltr390", Metric: "ambient_light", Value: als, Unit: "als", RecordedAt: recordedAt},
			telemetry.Reading{DeviceKey: "probe_ds18b20", Metric: "temperature", Value: hideTemp, Unit: "c", RecordedAt: recordedAt},
			telemetry.Reading{DeviceKey: "ambient_bh1750", Metric: "illuminance", Value: illuminance, Unit: "lux", RecordedAt: recordedAt},
		)
	}

	return readings
}

// uniform returns a random float in [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// clamp bounds a value into an inclusive range.
func clamp(value, minValue, maxValue float64) float64 {
	return math.Max(minValue, math.Min(maxValue, value))
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
