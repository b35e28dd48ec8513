// Package api provides the diagnostics HTTP API for the pub/sub node.
//
// It exposes the node's health, a point-in-time diagnostics snapshot, the
// persisted status journal, and a publish endpoint for operational
// testing.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/megageek/esphome-espnow-pubsub/internal/bridges/mqttbridge"
	"github.com/megageek/esphome-espnow-pubsub/internal/diagnostics"
	"github.com/megageek/esphome-espnow-pubsub/internal/espnow"
	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/config"
	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/influxdb"
	"github.com/megageek/esphome-espnow-pubsub/internal/infrastructure/logging"
	"github.com/megageek/esphome-espnow-pubsub/internal/pubsub"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Node    *pubsub.Node
	Link    *espnow.Link
	Journal *diagnostics.Journal // optional
	Metrics *influxdb.Client     // optional
	Bridge  *mqttbridge.Bridge   // optional
	Version string
}

// Server is the diagnostics HTTP server.
//
// It manages the HTTP listener, routes and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	node    *pubsub.Node
	link    *espnow.Link
	journal *diagnostics.Journal
	metrics *influxdb.Client
	bridge  *mqttbridge.Bridge
	version string
	server  *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, node, link)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Node == nil {
		return nil, fmt.Errorf("node is required")
	}
	if deps.Link == nil {
		return nil, fmt.Errorf("link is required")
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		node:    deps.Node,
		link:    deps.Link,
		journal: deps.Journal,
		metrics: deps.Metrics,
		bridge:  deps.Bridge,
		version: deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the server has been started.
func (s *Server) HealthCheck(_ context.Context) error {
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
