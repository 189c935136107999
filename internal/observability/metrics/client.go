package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ClientMetrics struct {
	registry *prometheus.Registry
	service  string

	cycleTotal    *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	cycleInFlight prometheus.Gauge
	scoreObserved prometheus.Histogram
}

func NewClientMetrics(service string) *ClientMetrics {
	registry := prometheus.NewRegistry()

	cycleTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sketchcheck",
			Subsystem: "upload",
			Name:      "cycles_total",
			Help:      "Total upload cycles by terminal status.",
		},
		[]string{"service", "status"},
	)
	cycleDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sketchcheck",
			Subsystem: "upload",
			Name:      "cycle_duration_seconds",
			Help:      "Upload cycle duration in seconds by terminal status.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34, 60},
		},
		[]string{"service", "status"},
	)
	cycleInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sketchcheck",
			Subsystem: "upload",
			Name:      "cycles_in_flight",
			Help:      "Number of in-flight upload cycles.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	scoreObserved := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sketchcheck",
			Subsystem: "analysis",
			Name:      "score",
			Help:      "Distribution of accessibility scores across completed cycles.",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 75, 80, 90, 100},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(cycleTotal, cycleDuration, cycleInFlight, scoreObserved)

	return &ClientMetrics{
		registry:      registry,
		service:       service,
		cycleTotal:    cycleTotal,
		cycleDuration: cycleDuration,
		cycleInFlight: cycleInFlight,
		scoreObserved: scoreObserved,
	}
}

func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ClientMetrics) CycleStarted() {
	m.cycleInFlight.Inc()
}

func (m *ClientMetrics) CycleFinished(status string, duration time.Duration) {
	m.cycleInFlight.Dec()
	if status == "" {
		status = "unknown"
	}
	m.cycleTotal.WithLabelValues(m.service, status).Inc()
	m.cycleDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *ClientMetrics) ObserveScore(score float64) {
	m.scoreObserved.Observe(score)
}
