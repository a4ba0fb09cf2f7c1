// Package metrics collects operation metrics and exports them in the
// Prometheus text format to a file a node_exporter textfile collector can read.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the part of the collector the request pipeline and the
// services depend on.
type Recorder interface {
	RecordRequest(method, code string, duration time.Duration)
	RecordLogin(outcome string)
}

// Login outcomes.
const (
	LoginSuccess   = "success"
	LoginFailure   = "failure"
	LoginThrottled = "throttled"
)

// Collector holds the Prometheus metrics of one process.
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	logins          *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktide_requests_total",
			Help: "Operations handled, by method and result code.",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tasktide_request_duration_seconds",
			Help:    "Operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktide_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.logins,
	)

	return c
}

// RecordRequest records one handled operation. A successful call has code "OK".
func (c *Collector) RecordRequest(method, code string, duration time.Duration) {
	c.requests.WithLabelValues(method, code).Inc()
	c.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordLogin records a login attempt.
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes everything gathered by g to path. The file is
// replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

// Nop discards everything. Used when no collector is configured.
type Nop struct{}

func (Nop) RecordRequest(string, string, time.Duration) {}
func (Nop) RecordLogin(string)                          {}
