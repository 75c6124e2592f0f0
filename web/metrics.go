package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prediction outcomes.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// Metrics holds the server's collectors on a private registry so that tests
// can build many servers in one process.
type Metrics struct {
	registry *prometheus.Registry

	Predictions        *prometheus.CounterVec
	PremiumPredictions prometheus.Counter
	PredictionDuration prometheus.Histogram
	PredictedQuality   prometheus.Histogram
	HTTPRequests       *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vinoscore_predictions_total",
			Help: "Quality predictions served, by outcome",
		}, []string{"outcome"}),
		PremiumPredictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vinoscore_premium_predictions_total",
			Help: "Predictions at or above the premium threshold",
		}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vinoscore_prediction_duration_seconds",
			Help:    "Time spent scaling and scoring one vector",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		PredictedQuality: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vinoscore_predicted_quality",
			Help:    "Distribution of predicted quality scores",
			Buckets: prometheus.LinearBuckets(3, 0.5, 12),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vinoscore_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"path", "code"}),
	}
	m.registry.MustRegister(
		m.Predictions,
		m.PremiumPredictions,
		m.PredictionDuration,
		m.PredictedQuality,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
