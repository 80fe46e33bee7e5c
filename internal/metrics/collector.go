// Package metrics exposes upload counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes upload metrics.
type Collector struct {
	registry     *prometheus.Registry
	objectsTotal *prometheus.CounterVec
	bytesTotal   prometheus.Counter
	retriesTotal prometheus.Counter
	duration     prometheus.Histogram
}

// New creates a collector with its own registry so repeated runs in
// one process never double-register.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		objectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "s3up_objects_total",
				Help: "Total number of files processed",
			},
			[]string{"status"},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "s3up_bytes_uploaded_total",
				Help: "Total bytes uploaded",
			},
		),
		retriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "s3up_retries_total",
				Help: "Total transfer retries",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "s3up_file_duration_seconds",
				Help:    "Time taken to process one file",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	c.registry.MustRegister(c.objectsTotal)
	c.registry.MustRegister(c.bytesTotal)
	c.registry.MustRegister(c.retriesTotal)
	c.registry.MustRegister(c.duration)

	return c
}

// IncStatus increments the per-status object counter. Status is one of
// uploaded, skipped, failed, url_generated, not_found.
func (c *Collector) IncStatus(status string) {
	c.objectsTotal.WithLabelValues(status).Inc()
}

// AddBytes adds to total uploaded bytes.
func (c *Collector) AddBytes(bytes int64) {
	c.bytesTotal.Add(float64(bytes))
}

// IncRetries counts one transfer retry.
func (c *Collector) IncRetries() {
	c.retriesTotal.Inc()
}

// ObserveDuration observes one file's processing time.
func (c *Collector) ObserveDuration(d time.Duration) {
	c.duration.Observe(d.Seconds())
}

// Handler returns the /metrics handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr. It blocks, so callers run it in
// a goroutine.
func (c *Collector) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return http.ListenAndServe(addr, mux)
}
