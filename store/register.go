package store

import (
	"github.com/rs/zerolog"

	"ratelimiter/clock"
	"ratelimiter/limiter"
	"ratelimiter/metrics"
	"ratelimiter/policy"
)

var _ limiter.Limiter = (*Distributed)(nil)

// Connector builds a Client for a policy's StoreEndpoint.
// DefaultConnector adapts Dial to this signature.
type Connector func(endpoint string) (Client, error)

// DefaultConnector dials a real Redis connection.
func DefaultConnector(endpoint string) (Client, error) {
	return Dial(endpoint)
}

// NewConstructor returns a limiter.Constructor that dials p.StoreEndpoint
// via connect and builds a Distributed limiter. Wire it with
// Factory.RegisterDistributed so policies with Distributed=true resolve
// to this backend regardless of their Algorithm tag (spec.md §4.5 always
// implements the sorted-set protocol, independent of which local
// algorithm the policy would otherwise use).
func NewConstructor(connect Connector, logger zerolog.Logger) limiter.Constructor {
	return func(p policy.Policy, clk clock.Clock, m *metrics.Collector) (limiter.Limiter, error) {
		client, err := connect(p.StoreEndpoint)
		if err != nil {
			return nil, &policy.ConfigError{Field: "store_endpoint", Value: p.StoreEndpoint, Reason: err.Error()}
		}
		return NewDistributed(p, client, clk, m, logger), nil
	}
}
