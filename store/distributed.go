package store

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ratelimiter/clock"
	"ratelimiter/decision"
	"ratelimiter/metrics"
	"ratelimiter/policy"
)

// admitScript implements spec.md §4.5's five-step atomic sequence
// against a Redis sorted set: expire stale entries, count the window,
// and admit-or-reject in one server-side round trip.
const admitScript = `
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now_ms - window_ms)
local n = redis.call('ZCARD', key)

if n < capacity then
	redis.call('ZADD', key, now_ms, member)
	redis.call('PEXPIRE', key, window_ms)
	return {1, capacity - n - 1, n + 1}
else
	return {0, 0, n}
end
`

var memberSeq atomic.Uint64

// Distributed is the shared-store Limiter variant (spec.md §4.5). It
// delegates all per-client state to a Redis sorted set and executes the
// admission check as a single server-side script, so that concurrent
// callers across processes observe a linearizable sequence of
// decisions for a given client — the same guarantee spec.md §5 requires
// of the local variants, but enforced by Redis's single-threaded script
// execution instead of an in-process mutex.
type Distributed struct {
	client  Client
	policy  policy.Policy
	clock   clock.Clock
	metrics *metrics.Collector
	log     zerolog.Logger

	mu  sync.Mutex
	sha string // cached script hash; empty until first successful load
}

// NewDistributed builds the distributed Limiter for p. p.Distributed
// must be true; p.StoreEndpoint is not dialed here — client is expected
// to already be connected (see Dial).
func NewDistributed(p policy.Policy, client Client, clk clock.Clock, m *metrics.Collector, logger zerolog.Logger) *Distributed {
	return &Distributed{
		client:  client,
		policy:  p,
		clock:   clk,
		metrics: m,
		log:     logger,
	}
}

func (d *Distributed) key(clientID string) string {
	return "rate_limit:" + clientID
}

// run executes admitScript, using the cached SHA when available and
// falling back to a full Eval (re-caching the SHA) on a cache miss —
// spec.md §9: "the client caches the hash and falls back to full script
// execution on cache miss."
func (d *Distributed) run(ctx context.Context, keys []string, args ...interface{}) (interface{}, error) {
	d.mu.Lock()
	sha := d.sha
	d.mu.Unlock()

	if sha != "" {
		res, err := d.client.EvalSha(ctx, sha, keys, args...)
		if err == nil {
			return res, nil
		}
		if !IsNoScript(err) {
			return nil, err
		}
	}

	res, err := d.client.Eval(ctx, admitScript, keys, args...)
	if err != nil {
		return nil, err
	}
	if newSha, loadErr := d.client.ScriptLoad(ctx, admitScript); loadErr == nil {
		d.mu.Lock()
		d.sha = newSha
		d.mu.Unlock()
	}
	return res, nil
}

// Decide implements spec.md §4.5/§7: on any store error it fails open
// (admits, logs at error level, and reports a conservative
// remaining=capacity-1) rather than denying service for a transient
// backend outage.
func (d *Distributed) Decide(clientID string) (decision.Decision, error) {
	if clientID == "" {
		return decision.Decision{}, ErrEmptyClientID
	}

	ctx := context.Background()
	now := d.clock.Now()
	nowMs := now.UnixMilli()
	windowMs := d.policy.Window.Milliseconds()
	member := fmt.Sprintf("%d-%d", nowMs, memberSeq.Add(1))

	res, err := d.run(ctx, []string{d.key(clientID)}, nowMs, windowMs, d.policy.Capacity, member)
	if err != nil {
		storeErr := &StoreError{Op: "decide", Key: d.key(clientID), Err: err}
		d.log.Error().Err(storeErr).Str("client_id", clientID).Msg("ratelimiter: distributed store unavailable, failing open")
		d.metrics.ObserveStoreError("decide")
		out := decision.Decision{
			Admitted:  true,
			Remaining: d.policy.Capacity - 1,
			ResetAt:   now.Add(d.policy.Window),
		}
		d.metrics.ObserveDecision("distributed", true, out.Remaining, clientID)
		return out, nil
	}

	fields, ok := res.([]interface{})
	if !ok || len(fields) != 3 {
		return decision.Decision{}, fmt.Errorf("ratelimiter: unexpected script result %#v", res)
	}
	admitted := toInt64(fields[0]) == 1
	remaining := int(toInt64(fields[1]))
	inWindow := int(toInt64(fields[2]))

	out := decision.Decision{
		Admitted:  admitted,
		Remaining: remaining,
		InWindow:  inWindow,
		ResetAt:   now.Add(d.policy.Window),
	}
	if !admitted {
		// Approximate fair-share estimate, not an accurate hint — see
		// SPEC_FULL.md §9.A item 2.
		divisor := inWindow
		if divisor < 1 {
			divisor = 1
		}
		out.RetryAfter = time.Duration(math.Ceil(d.policy.Window.Seconds()/float64(divisor))) * time.Second
	}

	d.metrics.ObserveDecision("distributed", admitted, remaining, clientID)
	return out, nil
}

// Reset deletes clientID's sorted-set key outright.
func (d *Distributed) Reset(clientID string) {
	if err := d.client.Del(context.Background(), d.key(clientID)); err != nil {
		storeErr := &StoreError{Op: "reset", Key: d.key(clientID), Err: err}
		d.log.Error().Err(storeErr).Str("client_id", clientID).Msg("ratelimiter: distributed reset failed")
	}
}

// Inspect returns clientID's current cardinality and TTL without
// consuming capacity. Unlike Decide, a store error here does not fail
// open: it is logged and a Status holding only ClientID (a zero Decision,
// Admitted=false) is returned — there is no admission decision to
// protect, only an introspection query (spec.md §4.5: "inspect returns
// cardinality and TTL").
func (d *Distributed) Inspect(clientID string) decision.Status {
	ctx := context.Background()
	n, err := d.client.ZCard(ctx, d.key(clientID))
	if err != nil {
		storeErr := &StoreError{Op: "inspect", Key: d.key(clientID), Err: err}
		d.log.Error().Err(storeErr).Str("client_id", clientID).Msg("ratelimiter: distributed inspect failed")
		return decision.Status{ClientID: clientID}
	}
	ttl, _ := d.client.TTL(ctx, d.key(clientID))

	remaining := d.policy.Capacity - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return decision.Status{
		ClientID: clientID,
		Decision: decision.Decision{
			Admitted:  int(n) < d.policy.Capacity,
			Remaining: remaining,
			InWindow:  int(n),
			ResetAt:   d.clock.Now().Add(ttl),
		},
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
