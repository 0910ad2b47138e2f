package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for the fallback-aware counters.
const (
	VerificationVerified = "verified"
	VerificationDegraded = "degraded"
	VerificationRejected = "rejected"

	ClassificationModel    = "model"
	ClassificationCache    = "cache"
	ClassificationFallback = "fallback"

	NotificationSent    = "sent"
	NotificationSkipped = "skipped"
	NotificationFailed  = "failed"
)

// Metrics holds the Prometheus collectors for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	IdentityVerifications *prometheus.CounterVec
	Classifications       *prometheus.CounterVec
	Notifications         *prometheus.CounterVec
	Requests              *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	Errors                *prometheus.CounterVec
}

// NewMetrics registers all collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		IdentityVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_identity_verifications_total",
			Help: "Bearer token verifications by outcome; degraded means claims were trusted without a signature check",
		}, []string{"mode"}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_classifications_total",
			Help: "Complaint classifications by source",
		}, []string{"source"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_notifications_total",
			Help: "Notification dispatch outcomes",
		}, []string{"result"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "complaints_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complaints_http_errors_total",
			Help: "HTTP error responses by code",
		}, []string{"method", "path", "code"}),
	}
}

// RecordVerification counts an identity verification outcome.
func (m *Metrics) RecordVerification(mode string) {
	if m == nil {
		return
	}
	m.IdentityVerifications.WithLabelValues(mode).Inc()
}

// RecordClassification counts where a classification came from.
func (m *Metrics) RecordClassification(source string) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(source).Inc()
}

// RecordNotification counts a notification outcome.
func (m *Metrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(method, path, code).Inc()
}
