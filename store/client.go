// Package store implements the distributed (shared-store) Limiter
// variant: spec.md §4.5's sorted-set admission script, executed
// server-side against Redis.
//
// Grounded on the teacher's pkg/static_limiter (go-redis/v8 Pipeline
// usage, key naming, TTL-on-write) and on
// other_examples/3fa80e10_aidenwallis-go-ratelimiting's Lua-script-over-
// go-redis pattern for atomic bucket arithmetic.
package store

import (
	"context"
	"strings"
	"time"
)

// Client is the minimal surface the distributed Limiter needs from a
// Redis connection. Plain Go return types (rather than go-redis's *Cmd
// wrappers) keep it trivially fakeable in tests without a real server
// or a miniredis dependency — mirroring the backend-agnostic interfaces
// Vipul984-flexlimit (storage.Storage) and aidenwallis-go-ratelimiting
// (adapters.Adapter) use for the same reason.
type Client interface {
	// Eval runs script directly (EVAL), returning the raw Lua return
	// value decoded into Go types (int64, []interface{}, etc).
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)

	// EvalSha runs a previously-loaded script by its SHA1 hash (EVALSHA).
	// Returns an error whose message contains "NOSCRIPT" if the hash is
	// not cached server-side.
	EvalSha(ctx context.Context, sha string, keys []string, args ...interface{}) (interface{}, error)

	// ScriptLoad uploads script to the server's script cache and
	// returns its SHA1 hash.
	ScriptLoad(ctx context.Context, script string) (string, error)

	Del(ctx context.Context, keys ...string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// IsNoScript reports whether err is a Redis NOSCRIPT error, signaling
// that the cached SHA has been evicted server-side and the caller must
// fall back to a full Eval (spec.md §9: "falls back to full script
// execution on cache miss").
func IsNoScript(err error) bool {
	return err != nil && strings.Contains(err.Error(), "NOSCRIPT")
}
