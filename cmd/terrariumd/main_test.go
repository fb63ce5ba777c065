package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when the database path
// is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	configPath := writeConfig(t, `
database:
  path: ""

logging:
  level: error
  format: text
  output: stderr
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, configPath)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path is required") {
		t.Errorf("run() error = %v", err)
	}
}

// TestRun_StartupAndShutdown runs the full collector with MQTT and
// InfluxDB disabled, then shuts it down via context timeout.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
database:
  path: "`+filepath.Join(tmpDir, "test.db")+`"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

api:
  host: "127.0.0.1"
  port: 18742
  timeouts:
    read: 30
    write: 30
    idle: 60

logging:
  level: error
  format: text
  output: stderr

seed:
  defaults: true
`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx, configPath); err != nil {
		t.Errorf("run() error = %v, want clean shutdown", err)
	}
}

// TestResolveConfigPath verifies flag, environment, and default precedence.
func TestResolveConfigPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("TERRARIUM_CONFIG", "")
		if path := resolveConfigPath(""); path != defaultConfigPath {
			t.Errorf("resolveConfigPath() = %q, want %q", path, defaultConfigPath)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("TERRARIUM_CONFIG", "/env/config.yaml")
		if path := resolveConfigPath(""); path != "/env/config.yaml" {
			t.Errorf("resolveConfigPath() = %q, want the environment path", path)
		}
	})

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("TERRARIUM_CONFIG", "/env/config.yaml")
		if path := resolveConfigPath("/flag/config.yaml"); path != "/flag/config.yaml" {
			t.Errorf("resolveConfigPath() = %q, want the flag path", path)
		}
	})
}

// probeConfig writes a config pointing the API section at the given
// address.
func probeConfig(t *testing.T, addr net.Addr) string {
	t.Helper()
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		t.Fatalf("listener address %T is not TCP", addr)
	}
	return writeConfig(t, fmt.Sprintf(`
database:
  path: "%s"

api:
  host: "127.0.0.1"
  port: %d

logging:
  level: error
  format: text
  output: stderr
`, filepath.Join(t.TempDir(), "probe.db"), tcpAddr.Port))
}

func TestProbeHealth(t *testing.T) {
	t.Run("healthy collector", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/health" {
				t.Errorf("probe hit %q, want /api/health", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			//nolint:errcheck // Test server response
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer ts.Close()

		if err := probeHealth(context.Background(), probeConfig(t, ts.Listener.Addr())); err != nil {
			t.Errorf("probeHealth() error = %v", err)
		}
	})

	t.Run("unhealthy collector", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		err := probeHealth(context.Background(), probeConfig(t, ts.Listener.Addr()))
		if err == nil {
			t.Fatal("probeHealth() should fail on a non-200 response")
		}
		if !strings.Contains(err.Error(), "503") {
			t.Errorf("probeHealth() error = %v", err)
		}
	})

	t.Run("unreachable collector", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := ts.Listener.Addr()
		ts.Close()

		if err := probeHealth(context.Background(), probeConfig(t, addr)); err == nil {
			t.Fatal("probeHealth() should fail when the collector is down")
		}
	})

	t.Run("missing config", func(t *testing.T) {
		if err := probeHealth(context.Background(), "/nonexistent/config.yaml"); err == nil {
			t.Fatal("probeHealth() should fail without a config file")
		}
	})
}
