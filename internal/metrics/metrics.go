// Package metrics exposes backup run counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tree_archiver"

type Metrics struct {
	RunsStarted  *prometheus.CounterVec
	RunsFinished *prometheus.CounterVec
	FilesCopied  *prometheus.CounterVec
	BytesCopied  *prometheus.CounterVec
	Running      prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		RunsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Backup runs started, by job.",
		}, []string{"job"}),
		RunsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Backup runs finished, by job and final status.",
		}, []string{"job", "status"}),
		FilesCopied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_copied_total",
			Help:      "Files copied, by job.",
		}, []string{"job"}),
		BytesCopied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_copied_total",
			Help:      "Bytes copied, by job.",
		}, []string{"job"}),
		Running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_progress",
			Help:      "Backup runs currently executing.",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
