package limiter

import (
	"math"
	"time"

	"ratelimiter/clock"
	"ratelimiter/decision"
	"ratelimiter/metrics"
	"ratelimiter/policy"
)

type fixedWindowState struct {
	initialized bool
	count       int
	windowStart time.Time
}

// FixedWindow counts admissions within discrete, non-overlapping windows
// of length policy.Window, per spec.md §4.4. A client may observe up to
// 2*capacity admissions within less than one window's duration across a
// window boundary — this is the algorithm's documented weakness, not a
// bug (spec.md §4.4, "Known edge case").
type FixedWindow struct {
	policy  policy.Policy
	clock   clock.Clock
	metrics *metrics.Collector
	states  *stateMap[fixedWindowState]
}

// NewFixedWindow constructs a FixedWindow limiter for p.
func NewFixedWindow(p policy.Policy, clk clock.Clock, m *metrics.Collector) *FixedWindow {
	return &FixedWindow{
		policy:  p,
		clock:   clk,
		metrics: m,
		states:  newStateMap[fixedWindowState](),
	}
}

func (f *FixedWindow) Decide(clientID string) (decision.Decision, error) {
	if clientID == "" {
		return decision.Decision{}, ErrEmptyClientID
	}

	var out decision.Decision
	f.states.withState(clientID, func(s *fixedWindowState) {
		now := f.clock.Now()
		if !s.initialized {
			s.windowStart = now
			s.initialized = true
		}
		if now.Sub(s.windowStart) >= f.policy.Window {
			s.count = 0
			s.windowStart = now
		}

		resetAt := s.windowStart.Add(f.policy.Window)
		if s.count < f.policy.Capacity {
			s.count++
			out = decision.Decision{
				Admitted:  true,
				Remaining: f.policy.Capacity - s.count,
				ResetAt:   resetAt,
				InWindow:  s.count,
			}
		} else {
			retryAfter := time.Duration(math.Ceil(resetAt.Sub(now).Seconds())) * time.Second
			retryAfter = ceilDuration(retryAfter, time.Second)
			out = decision.Decision{
				Admitted:   false,
				Remaining:  0,
				ResetAt:    resetAt,
				RetryAfter: retryAfter,
				InWindow:   s.count,
			}
		}
	})

	f.metrics.ObserveDecision(string(policy.FixedWindow), out.Admitted, out.Remaining, clientID)
	return out, nil
}

func (f *FixedWindow) Reset(clientID string) {
	f.states.reset(clientID)
}

func (f *FixedWindow) Inspect(clientID string) decision.Status {
	var out decision.Decision
	f.states.withState(clientID, func(s *fixedWindowState) {
		now := f.clock.Now()
		windowStart := s.windowStart
		count := s.count
		if !s.initialized || now.Sub(windowStart) >= f.policy.Window {
			windowStart = now
			count = 0
		}
		out = decision.Decision{
			Admitted:  count < f.policy.Capacity,
			Remaining: f.policy.Capacity - count,
			ResetAt:   windowStart.Add(f.policy.Window),
			InWindow:  count,
		}
	})
	return decision.Status{ClientID: clientID, Decision: out}
}
