package limiter

import (
	"math"
	"time"

	"ratelimiter/clock"
	"ratelimiter/decision"
	"ratelimiter/metrics"
	"ratelimiter/policy"
)

type tokenBucketState struct {
	initialized bool
	tokens      float64
	lastRefill  time.Time
}

// TokenBucket admits requests against a bucket of real-valued tokens,
// refilled continuously at policy.RefillRate up to policy.Burst, as
// specified in spec.md §4.1.
type TokenBucket struct {
	policy  policy.Policy
	clock   clock.Clock
	metrics *metrics.Collector
	states  *stateMap[tokenBucketState]
}

// NewTokenBucket constructs a TokenBucket limiter for p. p.Algorithm is
// ignored; callers go through Factory for algorithm-tag dispatch.
func NewTokenBucket(p policy.Policy, clk clock.Clock, m *metrics.Collector) *TokenBucket {
	return &TokenBucket{
		policy:  p,
		clock:   clk,
		metrics: m,
		states:  newStateMap[tokenBucketState](),
	}
}

// Decide implements spec.md §4.1's refill-then-consume sequence.
func (b *TokenBucket) Decide(clientID string) (decision.Decision, error) {
	if clientID == "" {
		return decision.Decision{}, ErrEmptyClientID
	}

	var out decision.Decision
	b.states.withState(clientID, func(s *tokenBucketState) {
		now := b.clock.Now()
		if !s.initialized {
			s.tokens = float64(b.policy.Capacity)
			s.lastRefill = now
			s.initialized = true
		}

		elapsed := now.Sub(s.lastRefill)
		if elapsed < 0 {
			elapsed = 0
		}
		s.tokens = math.Min(float64(b.policy.Burst), s.tokens+elapsed.Seconds()*b.policy.RefillRate)
		s.lastRefill = now

		if s.tokens >= 1 {
			s.tokens--
			remaining := clampFloorNonNegative(s.tokens)
			out = decision.Decision{
				Admitted:  true,
				Remaining: remaining,
				ResetAt:   now.Add(b.policy.Window),
				InWindow:  b.policy.Capacity - remaining,
			}
		} else {
			// Approximate: always ceil(1/RefillRate) whole seconds, without
			// regard to the fractional tokens already in the bucket.
			retryAfter := time.Duration(math.Ceil(1/b.policy.RefillRate)) * time.Second
			out = decision.Decision{
				Admitted:   false,
				Remaining:  0,
				ResetAt:    now.Add(retryAfter),
				RetryAfter: retryAfter,
				InWindow:   b.policy.Capacity,
			}
		}
	})

	b.metrics.ObserveDecision(string(policy.TokenBucket), out.Admitted, out.Remaining, clientID)
	return out, nil
}

// Reset discards clientID's bucket; the next Decide re-initializes it
// full.
func (b *TokenBucket) Reset(clientID string) {
	b.states.reset(clientID)
}

// Inspect reports clientID's status without consuming a token.
func (b *TokenBucket) Inspect(clientID string) decision.Status {
	var out decision.Decision
	b.states.withState(clientID, func(s *tokenBucketState) {
		now := b.clock.Now()
		if !s.initialized {
			out = decision.Decision{
				Admitted:  true,
				Remaining: b.policy.Capacity,
				ResetAt:   now.Add(b.policy.Window),
			}
			return
		}
		elapsed := now.Sub(s.lastRefill)
		if elapsed < 0 {
			elapsed = 0
		}
		tokens := math.Min(float64(b.policy.Burst), s.tokens+elapsed.Seconds()*b.policy.RefillRate)
		remaining := clampFloorNonNegative(tokens)
		out = decision.Decision{
			Admitted:  tokens >= 1,
			Remaining: remaining,
			ResetAt:   now.Add(b.policy.Window),
			InWindow:  b.policy.Capacity - remaining,
		}
	})
	return decision.Status{ClientID: clientID, Decision: out}
}
