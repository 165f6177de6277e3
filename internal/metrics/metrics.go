// Package metrics collects and exposes Prometheus metrics for the
// account and token flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the slice of metrics the service layer reports into.
type Recorder interface {
	RecordRegistration()
	RecordRegistrationFailure(reason string)
	RecordTokensIssued(flow string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	registrations        prometheus.Counter
	registrationFailures *prometheus.CounterVec
	tokensIssued         *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "savings_auth_registrations_total",
			Help: "Total number of successful account registrations.",
		}),
		registrationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "savings_auth_registration_failures_total",
			Help: "Total number of rejected registrations by reason.",
		}, []string{"reason"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "savings_auth_tokens_issued_total",
			Help: "Total number of issued token pairs by flow.",
		}, []string{"flow"}),
	}

	reg.MustRegister(c.registrations, c.registrationFailures, c.tokensIssued)

	return c
}

func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

func (c *Collector) RecordRegistrationFailure(reason string) {
	c.registrationFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordTokensIssued(flow string) {
	c.tokensIssued.WithLabelValues(flow).Inc()
}

// Handler serves the scrape endpoint for the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Nop discards all recordings. Used in tests.
type Nop struct{}

func (Nop) RecordRegistration()              {}
func (Nop) RecordRegistrationFailure(string) {}
func (Nop) RecordTokensIssued(string)        {}
