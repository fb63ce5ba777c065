package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sablewood/terrarium-core/internal/alert"
	"github.com/sablewood/terrarium-core/internal/bridges/mqttingest"
	"github.com/sablewood/terrarium-core/internal/device"
	"github.com/sablewood/terrarium-core/internal/infrastructure/config"
	"github.com/sablewood/terrarium-core/internal/infrastructure/database"
	"github.com/sablewood/terrarium-core/internal/infrastructure/influxdb"
	"github.com/sablewood/terrarium-core/internal/infrastructure/logging"
	"github.com/sablewood/terrarium-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// BridgeMetricsProvider exposes the MQTT ingest bridge counters to the
// system metrics endpoint without coupling the server to the bridge's
// lifecycle.
type BridgeMetricsProvider interface {
	GetMetrics() mqttingest.Metrics
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	DB       *database.DB
	Devices  *device.Registry
	Ingestor *telemetry.Ingestor
	Queries  *telemetry.Queries
	Alerts   alert.Repository

	// Bridge and Influx are optional; when nil their sections are omitted
	// from the system metrics payload.
	Bridge BridgeMetricsProvider
	Influx *influxdb.Client

	Version string
}

// Server is the HTTP API server for terrarium-core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	db       *database.DB
	devices  *device.Registry
	ingestor *telemetry.Ingestor
	queries  *telemetry.Queries
	alerts   alert.Repository
	bridge   BridgeMetricsProvider
	influx   *influxdb.Client
	version  string

	server    *http.Server
	hub       *Hub
	startTime time.Time
	cancel    context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("database is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Ingestor == nil {
		return nil, fmt.Errorf("ingestor is required")
	}
	if deps.Queries == nil {
		return nil, fmt.Errorf("query service is required")
	}
	if deps.Alerts == nil {
		return nil, fmt.Errorf("alert repository is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		db:        deps.DB,
		devices:   deps.Devices,
		ingestor:  deps.Ingestor,
		queries:   deps.Queries,
		alerts:    deps.Alerts,
		bridge:    deps.Bridge,
		influx:    deps.Influx,
		version:   deps.Version,
		hub:       NewHub(deps.WS, deps.Logger),
		startTime: time.Now(),
	}

	return s, nil
}

// Hub returns the server's WebSocket hub.
//
// Exposed so the caller can attach the hub to the ingestor's broadcaster
// before Start().
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", s.server.Addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
