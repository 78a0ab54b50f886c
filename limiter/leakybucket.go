package limiter

import (
	"math"
	"time"

	"ratelimiter/clock"
	"ratelimiter/decision"
	"ratelimiter/metrics"
	"ratelimiter/policy"
)

type leakyBucketState struct {
	initialized bool
	queue       []time.Time
	lastLeak    time.Time
	totalLeaked int
}

// LeakyBucket drains a FIFO queue of pending admissions at a constant
// leakRate = capacity/window requests/sec, per spec.md §4.3.
type LeakyBucket struct {
	policy   policy.Policy
	leakRate float64
	clock    clock.Clock
	metrics  *metrics.Collector
	states   *stateMap[leakyBucketState]
}

// NewLeakyBucket constructs a LeakyBucket limiter for p.
func NewLeakyBucket(p policy.Policy, clk clock.Clock, m *metrics.Collector) *LeakyBucket {
	return &LeakyBucket{
		policy:   p,
		leakRate: p.LeakRate(),
		clock:    clk,
		metrics:  m,
		states:   newStateMap[leakyBucketState](),
	}
}

func (b *LeakyBucket) Decide(clientID string) (decision.Decision, error) {
	if clientID == "" {
		return decision.Decision{}, ErrEmptyClientID
	}

	var out decision.Decision
	b.states.withState(clientID, func(s *leakyBucketState) {
		now := b.clock.Now()
		if !s.initialized {
			s.lastLeak = now
			s.initialized = true
		}

		elapsed := now.Sub(s.lastLeak)
		if elapsed < 0 {
			elapsed = 0
		}
		toLeak := int(math.Floor(elapsed.Seconds() * b.leakRate))
		if toLeak > len(s.queue) {
			toLeak = len(s.queue)
		}
		if toLeak > 0 {
			s.queue = s.queue[toLeak:]
			s.totalLeaked += toLeak
			s.lastLeak = now
		}
		// When nothing leaked, lastLeak is left unchanged so sub-tick
		// elapsed time accumulates rather than being discarded — the
		// "accumulating variant" spec.md §4.3 calls out as more
		// accurate at low rates.

		if len(s.queue) < b.policy.Capacity {
			s.queue = append(s.queue, now)
			out = decision.Decision{
				Admitted:  true,
				Remaining: b.policy.Capacity - len(s.queue),
				ResetAt:   now.Add(b.policy.Window),
				InWindow:  len(s.queue),
			}
		} else {
			retryAfter := time.Duration(math.Ceil(1/b.leakRate)) * time.Second
			out = decision.Decision{
				Admitted:   false,
				Remaining:  0,
				ResetAt:    now.Add(retryAfter),
				RetryAfter: retryAfter,
				InWindow:   len(s.queue),
			}
		}
	})

	b.metrics.ObserveDecision(string(policy.LeakyBucket), out.Admitted, out.Remaining, clientID)
	return out, nil
}

func (b *LeakyBucket) Reset(clientID string) {
	b.states.reset(clientID)
}

func (b *LeakyBucket) Inspect(clientID string) decision.Status {
	var out decision.Decision
	b.states.withState(clientID, func(s *leakyBucketState) {
		now := b.clock.Now()
		lastLeak := s.lastLeak
		if !s.initialized {
			lastLeak = now
		}
		elapsed := now.Sub(lastLeak)
		if elapsed < 0 {
			elapsed = 0
		}
		toLeak := int(math.Floor(elapsed.Seconds() * b.leakRate))
		qlen := len(s.queue) - toLeak
		if qlen < 0 {
			qlen = 0
		}
		out = decision.Decision{
			Admitted:  qlen < b.policy.Capacity,
			Remaining: b.policy.Capacity - qlen,
			ResetAt:   now.Add(b.policy.Window),
			InWindow:  qlen,
		}
	})
	return decision.Status{ClientID: clientID, Decision: out}
}
