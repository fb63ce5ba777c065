package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/sablewood/terrarium-core/internal/bridges/mqttingest"
)

// SystemMetrics is the response of GET /api/system/metrics.
type SystemMetrics struct {
	Timestamp     string              `json:"timestamp"`
	Version       string              `json:"version"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Runtime       RuntimeMetrics      `json:"runtime"`
	WebSocket     WSMetrics           `json:"websocket"`
	MQTT          *mqttingest.Metrics `json:"mqtt,omitempty"`
	InfluxDB      *InfluxMetrics      `json:"influxdb,omitempty"`
	Devices       DeviceMetrics       `json:"devices"`
	Readings      ReadingMetrics      `json:"readings"`
	Alerts        AlertMetrics        `json:"alerts"`
	Database      DatabaseMetrics     `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// InfluxMetrics contains mirror connection state.
type InfluxMetrics struct {
	Connected bool `json:"connected"`
}

// DeviceMetrics contains device registry statistics.
type DeviceMetrics struct {
	Total int `json:"total"`
}

// ReadingMetrics contains reading store statistics.
type ReadingMetrics struct {
	Total int64 `json:"total"`
}

// AlertMetrics contains alert rule statistics.
type AlertMetrics struct {
	Total int `json:"total"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleSystemMetrics returns operational metrics across the pipeline.
func (s *Server) handleSystemMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Devices: DeviceMetrics{
			Total: s.devices.GetDeviceCount(),
		},
	}

	if s.bridge != nil {
		bridgeStats := s.bridge.GetMetrics()
		metrics.MQTT = &bridgeStats
	}

	if s.influx != nil {
		metrics.InfluxDB = &InfluxMetrics{Connected: s.influx.IsConnected()}
	}

	readingCount, err := s.queries.CountReadings(r.Context())
	if err != nil {
		s.logger.Warn("reading count failed", "error", err)
	}
	metrics.Readings = ReadingMetrics{Total: readingCount}

	alertCount, err := s.alerts.Count(r.Context())
	if err != nil {
		s.logger.Warn("alert count failed", "error", err)
	}
	metrics.Alerts = AlertMetrics{Total: alertCount}

	dbStats := s.db.Stats()
	metrics.Database = DatabaseMetrics{
		OpenConnections: dbStats.OpenConnections,
		InUse:           dbStats.InUse,
		Idle:            dbStats.Idle,
		WaitCount:       dbStats.WaitCount,
	}

	writeJSON(w, http.StatusOK, metrics)
}
