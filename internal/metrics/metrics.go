// Package metrics collects Prometheus metrics for authorization decisions
// and sign-in traffic and serves them for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Authorization decision labels.
const (
	DecisionAllowed         = "allowed"
	DecisionUnauthenticated = "unauthenticated"
	DecisionForbidden       = "forbidden"
	DecisionUnavailable     = "unavailable"
)

// Recorder is what the service and middleware layers report to.
type Recorder interface {
	RecordAuthzDecision(decision string)
	RecordPrivilegeLookupError()
	RecordSignIn(success bool)
	RecordRateLimited(route string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	authzDecisions     *prometheus.CounterVec
	privilegeLookupErr prometheus.Counter
	signIns            *prometheus.CounterVec
	rateLimited        *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whynot_authz_decisions_total",
			Help: "Authorization decisions on protected API calls, by outcome.",
		}, []string{"decision"}),
		privilegeLookupErr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whynot_privilege_lookup_errors_total",
			Help: "Privilege lookups that failed and were treated as not privileged.",
		}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whynot_sign_ins_total",
			Help: "Local sign-in attempts, by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whynot_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter, by route.",
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.authzDecisions,
		c.privilegeLookupErr,
		c.signIns,
		c.rateLimited,
	)

	return c
}

func (c *Collector) RecordAuthzDecision(decision string) {
	c.authzDecisions.WithLabelValues(decision).Inc()
}

func (c *Collector) RecordPrivilegeLookupError() {
	c.privilegeLookupErr.Inc()
}

func (c *Collector) RecordSignIn(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.signIns.WithLabelValues(result).Inc()
}

func (c *Collector) RecordRateLimited(route string) {
	c.rateLimited.WithLabelValues(route).Inc()
}

// Nop discards everything. Used where no registry is wired, mostly tests.
type Nop struct{}

func (Nop) RecordAuthzDecision(string)  {}
func (Nop) RecordPrivilegeLookupError() {}
func (Nop) RecordSignIn(bool)           {}
func (Nop) RecordRateLimited(string)    {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
