// Package metrics provides Prometheus metrics for the file store and the
// scrubber.
//
// Metrics are optional. Until InitRegistry is called every constructor
// returns nil and the components fall back to their no-op implementations.
//
// Usage:
//
//	metrics.InitRegistry()
//
//	store, err := filestore.Open(ctx, files, meta, filestore.Options{
//	    Metrics: metrics.NewFileStoreMetrics(),
//	})
//
//	srv := metrics.NewServer(metrics.ServerConfig{Port: 9090})
//	go srv.Start(ctx)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is the global Prometheus registry, written once by InitRegistry
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Call it before creating any metrics instances. Later calls are ignored.
// The registry also carries the Go runtime and process collectors.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// GetRegistry returns the global Prometheus registry.
//
// Returns nil if InitRegistry has not been called.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
