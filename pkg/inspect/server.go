// Package inspect serves a debug surface for a filament runtime: health and
// stats endpoints, a Prometheus scrape target, and a WebSocket stream of
// live runtime counters.
//
// The server is meant for an operations port, not for end users; bind it to
// localhost or put it behind your infrastructure's admin auth.
package inspect

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filament-dev/filament/pkg/filament"
)

// Config configures the inspection server.
type Config struct {
	// Address is the listen address (default: "localhost:6070").
	Address string

	// StreamInterval is how often the WebSocket stream pushes a stats
	// snapshot (default: 1s).
	StreamInterval time.Duration

	// ShutdownTimeout bounds graceful shutdown (default: 5s).
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout for the HTTP server (default: 10s).
	ReadHeaderTimeout time.Duration

	// CheckOrigin validates WebSocket upgrade origins. The default accepts
	// all origins; the surface is expected to sit on an internal port.
	CheckOrigin func(r *http.Request) bool

	// Gatherer is the Prometheus gatherer behind /metrics.
	// Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer

	// Logger for server events. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default inspection server configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:           "localhost:6070",
		StreamInterval:    time.Second,
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		CheckOrigin:       func(*http.Request) bool { return true },
		Gatherer:          prometheus.DefaultGatherer,
		Logger:            slog.Default(),
	}
}

// Server exposes one runtime's debug surface over HTTP.
type Server struct {
	rt     *filament.Runtime
	config *Config

	upgrader   websocket.Upgrader
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates an inspection server for rt. Unset config fields fall back to
// defaults; a nil config is equivalent to DefaultConfig.
func New(rt *filament.Runtime, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if config.Address == "" {
			config.Address = defaults.Address
		}
		if config.StreamInterval == 0 {
			config.StreamInterval = defaults.StreamInterval
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
		if config.ReadHeaderTimeout == 0 {
			config.ReadHeaderTimeout = defaults.ReadHeaderTimeout
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = defaults.CheckOrigin
		}
		if config.Gatherer == nil {
			config.Gatherer = defaults.Gatherer
		}
		if config.Logger == nil {
			config.Logger = defaults.Logger
		}
	}

	s := &Server{
		rt:     rt,
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: config.CheckOrigin,
		},
		logger: config.Logger.With("component", "inspect"),
	}
	s.httpServer = &http.Server{
		Addr:              config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the server's routes for mounting into an existing mux.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", s.handleStatsStream)

	return r
}

// ListenAndServe runs the server until Shutdown. Returns http.ErrServerClosed
// after a graceful shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("inspection server listening", "address", s.config.Address)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, bounded by ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.rt.Stats()); err != nil {
		s.logger.Error("stats encode failed", "error", err)
	}
}

// handleStatsStream upgrades to WebSocket and pushes a stats snapshot
// immediately, then on every StreamInterval tick until the peer disconnects.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Reader goroutine: surfaces close frames and read errors.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.config.StreamInterval)
	defer ticker.Stop()

	if err := conn.WriteJSON(s.rt.Stats()); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(s.rt.Stats()); err != nil {
				return
			}
		}
	}
}
