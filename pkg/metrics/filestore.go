package metrics

import (
	"time"

	"github.com/marmos91/keepfs/pkg/filestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// fileStoreMetrics is the Prometheus implementation of filestore.Metrics.
type fileStoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	corruptionsTotal  *prometheus.CounterVec
	registeredFiles   prometheus.Gauge
}

// NewFileStoreMetrics creates Prometheus-backed file store metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes the store use its built-in no-op implementation.
func NewFileStoreMetrics() filestore.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newFileStoreMetrics(GetRegistry())
}

func newFileStoreMetrics(reg prometheus.Registerer) *fileStoreMetrics {
	return &fileStoreMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepfs_filestore_operations_total",
				Help: "Total number of file store operations by operation and result code",
			},
			[]string{"operation", "code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "keepfs_filestore_operation_duration_seconds",
				Help: "Duration of file store operations in seconds",
				Buckets: []float64{
					0.0005, // 500us
					0.001,  // 1ms
					0.005,  // 5ms
					0.025,  // 25ms
					0.1,    // 100ms
					0.5,    // 500ms
					2.5,    // 2.5s
				},
			},
			[]string{"operation"},
		),
		corruptionsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepfs_filestore_corruptions_total",
				Help: "Files found corrupted, by the operation that detected it",
			},
			[]string{"operation"},
		),
		registeredFiles: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "keepfs_filestore_registered_files",
				Help: "Number of names currently registered in the file store",
			},
		),
	}
}

func (m *fileStoreMetrics) ObserveOperation(op string, code filestore.ErrorCode, duration time.Duration) {
	m.operationsTotal.WithLabelValues(op, code.String()).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *fileStoreMetrics) RecordCorruption(op string) {
	m.corruptionsTotal.WithLabelValues(op).Inc()
}

func (m *fileStoreMetrics) SetRegisteredFiles(n int) {
	m.registeredFiles.Set(float64(n))
}
