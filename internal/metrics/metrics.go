package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the guard and the forwarder report to.
type Recorder interface {
	RecordGuardDecision(reason string, allowed bool)
	RecordProxyRequest(method string, status int, duration time.Duration)
}

type Collector struct {
	guardDecisions *prometheus.CounterVec
	proxyRequests  *prometheus.CounterVec
	proxyLatency   *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_guard_decisions_total",
			Help: "Route guard decisions by reason and outcome.",
		}, []string{"reason", "outcome"}),
		proxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_proxy_requests_total",
			Help: "Requests forwarded to the backend API by method and status.",
		}, []string{"method", "status"}),
		proxyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_proxy_latency_seconds",
			Help:    "Latency of forwarded requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(c.guardDecisions, c.proxyRequests, c.proxyLatency)
	return c
}

// NewRegistry returns a registry with the Go runtime and process collectors
// already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (c *Collector) RecordGuardDecision(reason string, allowed bool) {
	outcome := "redirect"
	if allowed {
		outcome = "allow"
	}
	c.guardDecisions.WithLabelValues(reason, outcome).Inc()
}

func (c *Collector) RecordProxyRequest(method string, status int, duration time.Duration) {
	c.proxyRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.proxyLatency.WithLabelValues(method).Observe(duration.Seconds())
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type noop struct{}

func (noop) RecordGuardDecision(string, bool)              {}
func (noop) RecordProxyRequest(string, int, time.Duration) {}

// Noop discards everything.
var Noop Recorder = noop{}
