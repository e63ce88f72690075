package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/keepfs/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPort is the metrics listener port used when none is configured.
const DefaultPort = 9090

// shutdownGrace bounds how long in-flight scrapes may run after Start's
// context is cancelled.
const shutdownGrace = 5 * time.Second

// Server exposes the keepfs collectors over HTTP while a long-running
// command (scrub --watch) is active.
//
// Endpoints:
//   - GET /metrics: Prometheus exposition (OpenMetrics when negotiated)
//   - GET /healthz: liveness probe, always "ok"
//   - GET /: plain-text pointer to /metrics
type Server struct {
	http     *http.Server
	port     int
	stopOnce sync.Once
	stopErr  error
}

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	// Port to listen on. Zero or negative selects DefaultPort.
	Port int
}

// NewServer builds a stopped metrics server. Call Start to serve.
func NewServer(config ServerConfig) *Server {
	if config.Port <= 0 {
		config.Port = DefaultPort
	}

	s := &Server{port: config.Port}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	if registry := GetRegistry(); registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
	} else {
		// Serving before InitRegistry: answer instead of 404ing the scraper
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "keepfs metrics are disabled", http.StatusServiceUnavailable)
		})
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "keepfs\n\nfile store and scrubber metrics: /metrics (port %d)\n", s.port)
	})

	return mux
}

// Handler returns the server's request multiplexer.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start binds the listener and serves until ctx is cancelled.
//
// A bind failure is returned immediately. Cancelling ctx shuts the server
// down with a short grace period and returns the shutdown result.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("metrics server: listen on port %d: %w", s.port, err)
	}
	logger.Info("Metrics server listening on port %d", s.port)

	serveErr := make(chan error, 1)
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err, ok := <-serveErr:
		if !ok {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop shuts the server down. Later calls return the first result.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if err := s.http.Shutdown(ctx); err != nil {
			s.stopErr = fmt.Errorf("metrics server shutdown: %w", err)
			logger.Warn("Metrics server shutdown: %v", err)
			return
		}
		logger.Info("Metrics server stopped")
	})
	return s.stopErr
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int {
	return s.port
}
