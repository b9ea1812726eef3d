package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Each
// Metrics owns its registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry
	stages   *turnStageWindow

	Turns              *prometheus.CounterVec
	Intents            *prometheus.CounterVec
	ProductResolutions *prometheus.CounterVec
	TurnLatency        prometheus.Histogram
	KnownUsers         prometheus.Gauge
	HistoryResets      prometheus.Counter
	HistoryErrors      *prometheus.CounterVec
	CatalogMisses      *prometheus.CounterVec
	WSMessages         *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stages:   newTurnStageWindow(256),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Handled turns by outcome.",
		}, []string{"outcome"}),
		Intents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Detected intents by tag.",
		}, []string{"intent"}),
		ProductResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_resolutions_total",
			Help:      "Product resolution attempts by result.",
		}, []string{"result"}),
		TurnLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end turn handling latency in milliseconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250},
		}),
		KnownUsers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "known_users",
			Help:      "Distinct user ids seen by the session manager.",
		}),
		HistoryResets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_resets_total",
			Help:      "Conversation history resets.",
		}),
		HistoryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_errors_total",
			Help:      "History store failures by operation.",
		}, []string{"op"}),
		CatalogMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_misses_total",
			Help:      "Knowledge base lookups that fell back to a placeholder.",
		}, []string{"kind"}),
		WSMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
	}
}

func (m *Metrics) ObserveTurnLatency(d time.Duration) {
	m.TurnLatency.Observe(durationMS(d))
}

// ObserveTurnStage records one pipeline stage duration in the rolling window.
func (m *Metrics) ObserveTurnStage(stage string, d time.Duration) {
	m.stages.Observe(stage, durationMS(d))
}

func (m *Metrics) ObserveTurnIndicator(name string) {
	m.stages.ObserveIndicator(name)
}

func (m *Metrics) SnapshotTurnStages() TurnStageSnapshot {
	return m.stages.Snapshot()
}

// ResetTurnStages clears the rolling stage window.
func (m *Metrics) ResetTurnStages() {
	m.stages.Reset()
}

// Handler serves this Metrics' registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func durationMS(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
