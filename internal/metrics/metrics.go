// Package metrics defines the prometheus collectors for games and learning.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Guess kinds and learning paths used as label values.
const (
	GuessTree   = "tree"
	GuessSecond = "second"

	PathExisting = "existing"
	PathNew      = "new"
	PathImport   = "import"
	PathRetrain  = "retrain"
)

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide on the default registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	gamesStarted    prometheus.Counter
	guesses         *prometheus.CounterVec
	confirmations   prometheus.Counter
	learningCommits *prometheus.CounterVec
	retrainFailures prometheus.Counter
	retrainDuration prometheus.Histogram
	datasetRows     prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		gamesStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "twentyq_games_started_total",
			Help: "Total number of games started.",
		}),
		guesses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "twentyq_guesses_total",
			Help: "Total number of guesses shown, partitioned by kind (tree, second).",
		}, []string{"kind"}),
		confirmations: f.NewCounter(prometheus.CounterOpts{
			Name: "twentyq_confirmations_total",
			Help: "Total number of guesses confirmed correct.",
		}),
		learningCommits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "twentyq_learning_commits_total",
			Help: "Total number of committed dataset changes, partitioned by path.",
		}, []string{"path"}),
		retrainFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "twentyq_retrain_failures_total",
			Help: "Total number of failed retrains.",
		}),
		retrainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "twentyq_retrain_duration_seconds",
			Help:    "Time spent training a model.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		datasetRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "twentyq_dataset_entities",
			Help: "Number of entities in the current dataset.",
		}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) GameStarted() {
	if m != nil {
		m.gamesStarted.Inc()
	}
}

func (m *Metrics) Guess(kind string) {
	if m != nil {
		m.guesses.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Confirmed() {
	if m != nil {
		m.confirmations.Inc()
	}
}

func (m *Metrics) Committed(path string) {
	if m != nil {
		m.learningCommits.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) RetrainFailed() {
	if m != nil {
		m.retrainFailures.Inc()
	}
}

func (m *Metrics) ObserveRetrain(d time.Duration) {
	if m != nil {
		m.retrainDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetEntities(n int) {
	if m != nil {
		m.datasetRows.Set(float64(n))
	}
}
