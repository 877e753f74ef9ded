package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's prometheus instruments
type Metrics struct {
	registry *prometheus.Registry

	attemptsTotal *prometheus.CounterVec
	scoreHist     *prometheus.HistogramVec
}

// New creates a registry with the grading/submission instruments
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_attempts_total",
			Help: "Graded attempts by exercise type and submission status",
		}, []string{"exercise", "status"}),
		scoreHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_attempt_score",
			Help:    "Similarity scores of graded attempts",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 75, 90, 100},
		}, []string{"exercise"}),
	}

	registry.MustRegister(m.attemptsTotal, m.scoreHist)
	return m
}

// CountAttempt records the outcome of one attempt
func (m *Metrics) CountAttempt(exercise, status string) {
	m.attemptsTotal.WithLabelValues(exercise, status).Inc()
}

// ObserveScore records the similarity score of a graded attempt
func (m *Metrics) ObserveScore(exercise string, score int) {
	m.scoreHist.WithLabelValues(exercise).Observe(float64(score))
}

// Handler exposes the registry in prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
