package config

import (
	"github.com/marmos91/keepfs/pkg/filestore"
	"github.com/marmos91/keepfs/pkg/metrics"
	"github.com/marmos91/keepfs/pkg/scrub"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// FileStore is the collector for file store operations (nil if disabled)
	FileStore filestore.Metrics

	// Scrub is the collector for scrub passes (nil if disabled)
	Scrub scrub.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed collectors for the file store and scrubber
//
// If metrics are disabled every field is nil, and the components fall back
// to their no-op implementations.
//
// Parameters:
//   - cfg: The complete keepfs configuration
//
// Returns:
//   - MetricsResult containing all metrics components
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	return &MetricsResult{
		Server:    server,
		FileStore: metrics.NewFileStoreMetrics(),
		Scrub:     metrics.NewScrubMetrics(),
	}
}
