package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	CyclesTotal         prometheus.Counter
	LinksProcessedTotal *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
	RenderDuration      prometheus.Histogram
	ProcessedURLs       prometheus.Gauge
}

// New registers the metrics with reg. Tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		CyclesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "snapbot_cycles_total",
			Help: "The total number of poll cycles run.",
		}),
		LinksProcessedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snapbot_links_processed_total",
			Help: "The total number of links carried through the pipeline.",
		}, []string{"mode"}), // live, dry_run
		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snapbot_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"stage"}), // search, render, upload, comment, persist
		RenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "snapbot_render_duration_seconds",
			Help:    "Duration of page renders.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 300},
		}),
		ProcessedURLs: f.NewGauge(prometheus.GaugeOpts{
			Name: "snapbot_processed_urls",
			Help: "Current size of the processed set.",
		}),
	}
}

func (m *Metrics) IncCycles() {
	m.CyclesTotal.Inc()
}

func (m *Metrics) IncProcessed(mode string) {
	m.LinksProcessedTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncErrors(stage string) {
	m.ErrorsTotal.WithLabelValues(stage).Inc()
}
