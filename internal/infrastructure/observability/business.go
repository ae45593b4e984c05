package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BusinessMetrics are the Prometheus counters served on /metrics
type BusinessMetrics struct {
	registry *prometheus.Registry

	submissions    *prometheus.CounterVec
	alerts         *prometheus.CounterVec
	intakeOutcomes *prometheus.CounterVec
	rejections     *prometheus.CounterVec
}

// NewBusinessMetrics registers the counters on a dedicated registry
func NewBusinessMetrics() *BusinessMetrics {
	m := &BusinessMetrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feediq",
			Name:      "feedback_submissions_total",
			Help:      "Feedback records appended, by star rating and result",
		}, []string{"rating", "result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feediq",
			Name:      "low_rating_alerts_total",
			Help:      "Low rating alerts sent, by result",
		}, []string{"result"}),
		intakeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feediq",
			Name:      "intake_sessions_total",
			Help:      "Intake conversations that ended, by final outcome",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feediq",
			Name:      "feedback_rejections_total",
			Help:      "Answers rejected by validation, by error code",
		}, []string{"code"}),
	}

	m.registry.MustRegister(
		m.submissions,
		m.alerts,
		m.intakeOutcomes,
		m.rejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *BusinessMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *BusinessMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSubmission counts one append attempt
func (m *BusinessMetrics) ObserveSubmission(rating int, err error) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(strconv.Itoa(rating), resultLabel(err)).Inc()
}

// ObserveAlert counts one low rating alert
func (m *BusinessMetrics) ObserveAlert(err error) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(resultLabel(err)).Inc()
}

// ObserveIntakeOutcome counts one finished conversation
func (m *BusinessMetrics) ObserveIntakeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.intakeOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveRejection counts one validation failure
func (m *BusinessMetrics) ObserveRejection(code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(code).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
