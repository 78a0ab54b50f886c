package limiter

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"ratelimiter/clock"
	"ratelimiter/metrics"
	"ratelimiter/policy"
)

// Constructor builds a Limiter for a validated policy.Policy. Registered
// per algorithm tag via Factory.Register.
type Constructor func(p policy.Policy, clk clock.Clock, m *metrics.Collector) (Limiter, error)

// Factory constructs Limiters from policies and caches one instance per
// distinct policy.Fingerprint, per spec.md §4.6.
type Factory struct {
	clock   clock.Clock
	metrics *metrics.Collector

	mu           sync.RWMutex
	constructors map[policy.Algorithm]Constructor
	distributed  Constructor
	instances    map[policy.Fingerprint]Limiter

	// group collapses concurrent Create calls for the same fingerprint
	// into a single construction, the way Chris-Alexander-Pop-go-
	// hyperforge's go.mod-provided golang.org/x/sync is used elsewhere
	// in that corpus to de-duplicate in-flight work.
	group singleflight.Group
}

// NewFactory returns a Factory with the four built-in algorithms
// registered, using clk as every constructed Limiter's time source and m
// (which may be nil) for instrumentation.
func NewFactory(clk clock.Clock, m *metrics.Collector) *Factory {
	f := &Factory{
		clock:        clk,
		metrics:      m,
		constructors: make(map[policy.Algorithm]Constructor),
		instances:    make(map[policy.Fingerprint]Limiter),
	}
	f.Register(policy.TokenBucket, func(p policy.Policy, clk clock.Clock, m *metrics.Collector) (Limiter, error) {
		return NewTokenBucket(p, clk, m), nil
	})
	f.Register(policy.SlidingWindow, func(p policy.Policy, clk clock.Clock, m *metrics.Collector) (Limiter, error) {
		return NewSlidingWindow(p, clk, m), nil
	})
	f.Register(policy.LeakyBucket, func(p policy.Policy, clk clock.Clock, m *metrics.Collector) (Limiter, error) {
		return NewLeakyBucket(p, clk, m), nil
	})
	f.Register(policy.FixedWindow, func(p policy.Policy, clk clock.Clock, m *metrics.Collector) (Limiter, error) {
		return NewFixedWindow(p, clk, m), nil
	})
	return f
}

// Register plugs in a Constructor for algorithm tag. Built-in tags may
// be overridden; this is how a caller registers an additional local
// variant beyond the four built-in algorithms.
func (f *Factory) Register(tag policy.Algorithm, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[tag] = ctor
}

// RegisterDistributed plugs in the Constructor used for every policy
// with Distributed=true, independent of its Algorithm tag — the
// distributed variant is a backend swap, not an algorithm choice (see
// store.NewConstructor).
func (f *Factory) RegisterDistributed(ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.distributed = ctor
}

// Create returns the Limiter for p, constructing and caching a new one
// on first reference to p's Fingerprint. Unknown algorithm tags fail
// with a *policy.ConfigError (ConfigError is never raised from Decide,
// only from construction — spec.md §7).
func (f *Factory) Create(p policy.Policy) (Limiter, error) {
	fp := p.Fingerprint()

	f.mu.RLock()
	existing, ok := f.instances[fp]
	f.mu.RUnlock()
	if ok {
		return existing, nil
	}

	key := fmt.Sprintf("%+v", fp)
	v, err, _ := f.group.Do(key, func() (interface{}, error) {
		f.mu.RLock()
		existing, ok := f.instances[fp]
		f.mu.RUnlock()
		if ok {
			return existing, nil
		}

		var ctor Constructor
		var ok bool
		f.mu.RLock()
		if p.Distributed {
			ctor, ok = f.distributed, f.distributed != nil
		} else {
			ctor, ok = f.constructors[p.Algorithm]
		}
		f.mu.RUnlock()
		if !ok {
			return nil, &policy.ConfigError{Field: "algorithm", Value: p.Algorithm, Reason: "no constructor registered"}
		}

		l, err := ctor(p, f.clock, f.metrics)
		if err != nil {
			return nil, err
		}

		f.mu.Lock()
		f.instances[fp] = l
		f.mu.Unlock()
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Limiter), nil
}
