package limiter

import (
	"math"
	"time"

	"ratelimiter/clock"
	"ratelimiter/decision"
	"ratelimiter/metrics"
	"ratelimiter/policy"
)

type slidingWindowState struct {
	log []time.Time // FIFO of admitted timestamps, oldest first
}

// SlidingWindow admits a request iff fewer than policy.Capacity
// timestamps fall in (now-window, now], per spec.md §4.2. This is the
// implementation shared by the SlidingWindow and SlidingWindowLog policy
// tags (SPEC_FULL.md §3.A).
type SlidingWindow struct {
	policy  policy.Policy
	clock   clock.Clock
	metrics *metrics.Collector
	states  *stateMap[slidingWindowState]
}

// NewSlidingWindow constructs a SlidingWindow limiter for p.
func NewSlidingWindow(p policy.Policy, clk clock.Clock, m *metrics.Collector) *SlidingWindow {
	return &SlidingWindow{
		policy:  p,
		clock:   clk,
		metrics: m,
		states:  newStateMap[slidingWindowState](),
	}
}

func (w *SlidingWindow) Decide(clientID string) (decision.Decision, error) {
	if clientID == "" {
		return decision.Decision{}, ErrEmptyClientID
	}

	var out decision.Decision
	w.states.withState(clientID, func(s *slidingWindowState) {
		now := w.clock.Now()
		cutoff := now.Add(-w.policy.Window)

		i := 0
		for i < len(s.log) && !s.log[i].After(cutoff) {
			i++
		}
		s.log = s.log[i:]

		n := len(s.log)
		if n < w.policy.Capacity {
			s.log = append(s.log, now)
			resetAt := now.Add(w.policy.Window)
			if n > 0 {
				resetAt = s.log[0].Add(w.policy.Window)
			}
			out = decision.Decision{
				Admitted:  true,
				Remaining: w.policy.Capacity - n - 1,
				ResetAt:   resetAt,
				InWindow:  n + 1,
			}
		} else {
			retryAfter := time.Duration(math.Ceil(s.log[0].Add(w.policy.Window).Sub(now).Seconds())) * time.Second
			retryAfter = ceilDuration(retryAfter, time.Second)
			out = decision.Decision{
				Admitted:   false,
				Remaining:  0,
				ResetAt:    s.log[0].Add(w.policy.Window),
				RetryAfter: retryAfter,
				InWindow:   n,
			}
		}
	})

	w.metrics.ObserveDecision(string(policy.SlidingWindow), out.Admitted, out.Remaining, clientID)
	return out, nil
}

func (w *SlidingWindow) Reset(clientID string) {
	w.states.reset(clientID)
}

func (w *SlidingWindow) Inspect(clientID string) decision.Status {
	var out decision.Decision
	w.states.withState(clientID, func(s *slidingWindowState) {
		now := w.clock.Now()
		cutoff := now.Add(-w.policy.Window)
		i := 0
		for i < len(s.log) && !s.log[i].After(cutoff) {
			i++
		}
		n := len(s.log) - i
		resetAt := now.Add(w.policy.Window)
		if n > 0 {
			resetAt = s.log[i].Add(w.policy.Window)
		}
		out = decision.Decision{
			Admitted:  n < w.policy.Capacity,
			Remaining: w.policy.Capacity - n,
			ResetAt:   resetAt,
			InWindow:  n,
		}
	})
	return decision.Status{ClientID: clientID, Decision: out}
}
