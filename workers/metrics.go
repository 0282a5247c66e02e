package workers

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type workerMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

var (
	metricsOnce     sync.Once
	metricsRegistry *workerMetrics
)

func defaultMetrics() *workerMetrics {
	metricsOnce.Do(func() {
		metricsRegistry = &workerMetrics{
			runs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ibetwst",
				Subsystem: "worker",
				Name:      "runs_total",
				Help:      "Worker runs by outcome (ok, error, skipped).",
			}, []string{"worker", "result"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "ibetwst",
				Subsystem: "worker",
				Name:      "run_duration_seconds",
				Help:      "Duration of worker runs that held their stream.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			}, []string{"worker"}),
			lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "ibetwst",
				Subsystem: "worker",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run.",
			}, []string{"worker"}),
		}
		prometheus.MustRegister(
			metricsRegistry.runs,
			metricsRegistry.duration,
			metricsRegistry.lastSuccess,
		)
	})
	return metricsRegistry
}
