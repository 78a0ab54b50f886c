// Package metrics instruments the rate limiter with Prometheus counters
// and gauges. Every Limiter constructor accepts a *Collector; a nil
// Collector (or one built with NewNoop) is always safe to use.
//
// This repurposes the teacher's github.com/prometheus/client_golang
// dependency: the teacher used the module's query-API client
// (api/prometheus/v1) to poll an external Prometheus server for
// adaptive-throttling feedback. Adaptive rate adjustment is an explicit
// spec Non-goal, so that usage is dropped; the instrumentation
// sub-package (prometheus.CounterVec/GaugeVec), which every production
// rate limiter in this corpus's broader ecosystem reaches for, is kept
// and pointed at decision outcomes instead.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Result labels the outcome of a Decide call for decisions_total.
type Result string

const (
	Admitted Result = "admitted"
	Rejected Result = "rejected"
)

// Collector holds the Prometheus instruments the engine writes to. The
// zero value is not usable; construct with New or NewNoop.
type Collector struct {
	decisions   *prometheus.CounterVec
	remaining   *prometheus.GaugeVec
	storeErrors *prometheus.CounterVec
	noop        bool
}

// New registers the engine's instruments against reg and returns a
// Collector that writes to them. Pass a dedicated *prometheus.Registry
// (rather than prometheus.DefaultRegisterer) when embedding this engine
// in a larger service that owns its own registry.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Count of rate limiter decisions by algorithm and result.",
		}, []string{"algorithm", "result"}),
		remaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ratelimit_remaining",
			Help: "Remaining capacity after the last decision, by algorithm and client.",
		}, []string{"algorithm", "client_id"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_store_errors_total",
			Help: "Count of distributed-store errors that triggered fail-open, by operation.",
		}, []string{"op"}),
	}
	for _, c2 := range []prometheus.Collector{c.decisions, c.remaining, c.storeErrors} {
		if err := reg.Register(c2); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewNoop returns a Collector that discards every observation. Useful
// when a caller doesn't want Prometheus wired in at all.
func NewNoop() *Collector {
	return &Collector{noop: true}
}

// ObserveDecision records one admission decision.
func (c *Collector) ObserveDecision(algorithm string, admitted bool, remaining int, clientID string) {
	if c == nil || c.noop {
		return
	}
	result := Rejected
	if admitted {
		result = Admitted
	}
	c.decisions.WithLabelValues(algorithm, string(result)).Inc()
	// Unbounded client_id cardinality is a known Prometheus foot-gun;
	// callers with high-cardinality client IDs should not wire this
	// gauge to a long-lived registry. Not solved here — see
	// SPEC_FULL.md §4.B.
	c.remaining.WithLabelValues(algorithm, clientID).Set(float64(remaining))
}

// ObserveStoreError records a distributed-store failure that triggered
// fail-open admission.
func (c *Collector) ObserveStoreError(op string) {
	if c == nil || c.noop {
		return
	}
	c.storeErrors.WithLabelValues(op).Inc()
}
