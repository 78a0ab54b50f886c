package store

import (
	"errors"
	"fmt"

	"ratelimiter/limiter"
)

// ErrEmptyClientID is the same sentinel limiter.ErrEmptyClientID so
// callers of store.Distributed directly (bypassing Factory) can use one
// errors.Is check regardless of which Limiter implementation they hold.
var ErrEmptyClientID = limiter.ErrEmptyClientID

// ErrStoreUnavailable is the sentinel every *StoreError matches via Is.
var ErrStoreUnavailable = errors.New("ratelimiter: store unavailable")

// StoreError wraps a failure from the distributed backend with the
// operation and key that were in flight, following
// Vipul984-flexlimit/errors.go's StorageError/ErrStorageUnavailable
// pairing. It is never returned to a Limiter caller — Decide fails open
// after logging it (spec.md §4.5/§7), and Reset/Inspect have no error
// return in the Limiter interface to propagate it through — so it
// exists purely to give the log lines a structured, matchable type.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Key, e.Err)
}

// Is allows checking for ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Unwrap returns the underlying error for error chain inspection.
func (e *StoreError) Unwrap() error {
	return e.Err
}
