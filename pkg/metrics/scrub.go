package metrics

import (
	"github.com/marmos91/keepfs/pkg/scrub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// scrubMetrics is the Prometheus implementation of scrub.Metrics.
type scrubMetrics struct {
	passesTotal   prometheus.Counter
	filesTotal    *prometheus.CounterVec
	passDuration  prometheus.Histogram
	lastPass      prometheus.Gauge
	lastUnhealthy prometheus.Gauge
}

// NewScrubMetrics creates Prometheus-backed scrubber metrics.
//
// Returns nil if metrics are not enabled, which makes the scrubber use its
// no-op implementation.
func NewScrubMetrics() scrub.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newScrubMetrics(GetRegistry())
}

func newScrubMetrics(reg prometheus.Registerer) *scrubMetrics {
	return &scrubMetrics{
		passesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "keepfs_scrub_passes_total",
				Help: "Total number of scrub passes",
			},
		),
		filesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepfs_scrub_files_total",
				Help: "Files visited by the scrubber, by result",
			},
			[]string{"result"},
		),
		passDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keepfs_scrub_pass_duration_seconds",
				Help:    "Duration of scrub passes in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms .. ~3m
			},
		),
		lastPass: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "keepfs_scrub_last_pass_timestamp_seconds",
				Help: "Unix time the last scrub pass finished",
			},
		),
		lastUnhealthy: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "keepfs_scrub_last_pass_unhealthy_files",
				Help: "Corrupted, missing or failed files found by the last pass",
			},
		),
	}
}

func (m *scrubMetrics) ObservePass(r *scrub.Report) {
	m.passesTotal.Inc()
	m.filesTotal.WithLabelValues("checked").Add(float64(len(r.Checked)))
	m.filesTotal.WithLabelValues("corrupted").Add(float64(len(r.Corrupted)))
	m.filesTotal.WithLabelValues("missing").Add(float64(len(r.Missing)))
	m.filesTotal.WithLabelValues("skipped").Add(float64(len(r.Skipped)))
	m.filesTotal.WithLabelValues("failed").Add(float64(len(r.Failed)))
	m.passDuration.Observe(r.Duration().Seconds())
	m.lastPass.Set(float64(r.EndTime.Unix()))
	m.lastUnhealthy.Set(float64(len(r.Corrupted) + len(r.Missing) + len(r.Failed)))
}
