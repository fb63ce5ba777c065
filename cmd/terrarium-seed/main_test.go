package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sablewood/terrarium-core/internal/infrastructure/database"
	"github.com/sablewood/terrarium-core/internal/telemetry"
)

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	content := fmt.Sprintf(`
database:
  path: %q

logging:
  level: error
  format: text
  output: stderr
`, dbPath)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func countReadings(t *testing.T, ctx context.Context, dbPath string) int64 {
	t.Helper()
	db, err := database.Open(database.Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	store := telemetry.NewSQLiteStore(db.SqlDB())
	count, err := store.CountReadings(ctx)
	if err != nil {
		t.Fatalf("CountReadings() error = %v", err)
	}
	return count
}

// TestRun_SeedsReadings verifies a fresh database ends up with the full
// sample series and the stock sensors.
func TestRun_SeedsReadings(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "terrarium.db")
	configPath := writeConfig(t, dbPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options{configPath: configPath, hours: 1, intervalMin: 10, seed: 7}
	if err := run(ctx, opts); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	// 1 hour at 10 minute intervals is 7 steps, each producing 7
	// readings across the 4 stock sensors.
	if got := countReadings(t, ctx, dbPath); got != 49 {
		t.Errorf("reading count = %d, want 49", got)
	}

	db, err := database.Open(database.Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	var deviceKeys int
	row := db.SqlDB().QueryRowContext(ctx, "SELECT COUNT(DISTINCT device_key) FROM readings")
	if err := row.Scan(&deviceKeys); err != nil {
		t.Fatalf("counting device keys: %v", err)
	}
	if deviceKeys != 4 {
		t.Errorf("distinct device keys = %d, want 4", deviceKeys)
	}
}

// TestRun_ClearRemovesExisting verifies -clear drops earlier readings
// instead of appending to them.
func TestRun_ClearRemovesExisting(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "terrarium.db")
	configPath := writeConfig(t, dbPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options{configPath: configPath, hours: 1, intervalMin: 10, seed: 7}
	if err := run(ctx, opts); err != nil {
		t.Fatalf("first run() error = %v", err)
	}

	opts.clear = true
	if err := run(ctx, opts); err != nil {
		t.Fatalf("second run() error = %v", err)
	}

	// Without the clear the second pass would double the series.
	if got := countReadings(t, ctx, dbPath); got != 49 {
		t.Errorf("reading count after clear = %d, want 49", got)
	}
}

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options{configPath: "/nonexistent/path/config.yaml", hours: 1, intervalMin: 5, seed: 7}
	if err := run(ctx, opts); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_RejectsBadSpan verifies the span flags are validated before
// any database work happens.
func TestRun_RejectsBadSpan(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options{configPath: "/nonexistent/path/config.yaml", hours: 0, intervalMin: 5}
	err := run(ctx, opts)
	if err == nil || !strings.Contains(err.Error(), "hours must be at least 1") {
		t.Errorf("run() error = %v, want hours validation", err)
	}

	opts = options{configPath: "/nonexistent/path/config.yaml", hours: 12, intervalMin: 0}
	err = run(ctx, opts)
	if err == nil || !strings.Contains(err.Error(), "interval-min must be at least 1") {
		t.Errorf("run() error = %v, want interval validation", err)
	}
}

// TestBuildReadings verifies the generator's shape, bounds, and
// repeatability.
func TestBuildReadings(t *testing.T) {
	start := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

	rng := rand.New(rand.NewPCG(7, 7))
	readings := buildReadings(start, 3, 5*time.Minute, rng)

	if len(readings) != 21 {
		t.Fatalf("len(readings) = %d, want 21", len(readings))
	}

	for i := 0; i < 7; i++ {
		if !readings[i].RecordedAt.Equal(start) {
			t.Errorf("readings[%d].RecordedAt = %v, want %v", i, readings[i].RecordedAt, start)
		}
	}
	if want := start.Add(5 * time.Minute); !readings[7].RecordedAt.Equal(want) {
		t.Errorf("readings[7].RecordedAt = %v, want %v", readings[7].RecordedAt, want)
	}
	if want := start.Add(10 * time.Minute); !readings[14].RecordedAt.Equal(want) {
		t.Errorf("readings[14].RecordedAt = %v, want %v", readings[14].RecordedAt, want)
	}

	for _, r := range readings {
		switch r.Metric {
		case "humidity":
			if r.Value < 35 || r.Value > 90 {
				t.Errorf("humidity %v outside [35, 90]", r.Value)
			}
		case "uv_index", "ambient_light", "illuminance":
			if r.Value < 0 {
				t.Errorf("%s = %v, want non-negative", r.Metric, r.Value)
			}
		}
	}

	sameSeed := buildReadings(start, 3, 5*time.Minute, rand.New(rand.NewPCG(7, 7)))
	if !reflect.DeepEqual(readings, sameSeed) {
		t.Error("same seed should reproduce the identical series")
	}

	otherSeed := buildReadings(start, 3, 5*time.Minute, rand.New(rand.NewPCG(11, 11)))
	if reflect.DeepEqual(readings, otherSeed) {
		t.Error("different seed should change the jitter")
	}
}

// TestResolveConfigPath verifies config path resolution order.
func TestResolveConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("TERRARIUM_CONFIG", "")
		if got := resolveConfigPath(""); got != defaultConfigPath {
			t.Errorf("resolveConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("TERRARIUM_CONFIG", "/tmp/env-config.yaml")
		if got := resolveConfigPath(""); got != "/tmp/env-config.yaml" {
			t.Errorf("resolveConfigPath() = %q, want env value", got)
		}
	})

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("TERRARIUM_CONFIG", "/tmp/env-config.yaml")
		if got := resolveConfigPath("/tmp/flag-config.yaml"); got != "/tmp/flag-config.yaml" {
			t.Errorf("resolveConfigPath() = %q, want flag value", got)
		}
	})
}
