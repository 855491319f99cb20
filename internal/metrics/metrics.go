// Package metrics holds the Prometheus collectors of the console on a
// dedicated registry served at /metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-configadmin/pkg/configapi"
)

const namespace = "configadmin"

// Submission outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeUnchanged = "unchanged"
	OutcomeInvalid   = "invalid"
)

type Metrics struct {
	registry         *prometheus.Registry
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamTotal    *prometheus.CounterVec
	submissions      *prometheus.CounterVec
}

// New registers every collector plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests"},
			[]string{"method", "route", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "config_api_request_duration_seconds",
				Help:      "Duration of calls to the configuration API",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op", "outcome"},
		),
		upstreamTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "config_api_requests_total", Help: "Calls to the configuration API by status"},
			[]string{"op", "status"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "submissions_total", Help: "Configuration submissions by outcome"},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(
		m.requestDuration,
		m.requestTotal,
		m.upstreamDuration,
		m.upstreamTotal,
		m.submissions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request. Route is the matched route
// template so ids do not explode the label space.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, code).Inc()
}

// ObserveRequest implements configapi.Observer.
func (m *Metrics) ObserveRequest(op string, status int, duration time.Duration, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, configapi.ErrUnauthorized):
		outcome = "unauthorized"
	case err != nil && status == 0:
		outcome = "transport_error"
	case err != nil:
		outcome = "error"
	}
	m.upstreamDuration.WithLabelValues(op, outcome).Observe(duration.Seconds())
	m.upstreamTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
}

// CountSubmission increments the submissions counter for outcome.
func (m *Metrics) CountSubmission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

var _ configapi.Observer = (*Metrics)(nil)
