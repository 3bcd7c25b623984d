// Package monitoring - metrics.go exposes Prometheus metrics.
//
// DESIGN: One collector per concern, on a private registry so tests can
// run collectors side by side:
//   - relay_requests_total:       HTTP requests by path and status class
//   - alert_sends_total:          Channel send attempts by channel and status
//   - alert_send_duration_seconds: Provider call latency by channel
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects operational metrics for the relay.
type Metrics struct {
	registry      *prometheus.Registry
	requestsTotal *prometheus.CounterVec
	sendsTotal    *prometheus.CounterVec
	sendDuration  *prometheus.HistogramVec
}

// NewMetrics creates the relay's metric set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "HTTP requests handled by the relay.",
		}, []string{"path", "status"}),
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alert_sends_total",
			Help: "Alert send attempts by channel and outcome.",
		}, []string{"channel", "status"}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "alert_send_duration_seconds",
			Help:    "Provider call latency by channel.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),
	}

	reg.MustRegister(m.requestsTotal, m.sendsTotal, m.sendDuration)
	return m
}

// RecordRequest records one handled HTTP request.
func (m *Metrics) RecordRequest(path string, statusCode int) {
	status := "2xx"
	switch {
	case statusCode >= 500:
		status = "5xx"
	case statusCode >= 400:
		status = "4xx"
	case statusCode >= 300:
		status = "3xx"
	}
	m.requestsTotal.WithLabelValues(path, status).Inc()
}

// RecordSend records one channel send attempt.
func (m *Metrics) RecordSend(channel, status string, d time.Duration) {
	m.sendsTotal.WithLabelValues(channel, status).Inc()
	m.sendDuration.WithLabelValues(channel).Observe(d.Seconds())
}

// Handler returns the /metrics scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
