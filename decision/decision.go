// Package decision holds the immutable value every Limiter admission
// check returns.
package decision

import "time"

// Decision is the outcome of a single Limiter.Decide call.
type Decision struct {
	// Admitted reports whether the request may proceed.
	Admitted bool

	// Remaining is the capacity left after this decision, in
	// [0, capacity] (or [0, burst] for TokenBucket).
	Remaining int

	// ResetAt is the absolute time at which the limiter returns to full
	// capacity. Algorithm-specific; see each limiter's decide() doc.
	ResetAt time.Time

	// RetryAfter is how long to wait before the next admission is
	// possible. Only meaningful when !Admitted; zero otherwise.
	RetryAfter time.Duration

	// InWindow is the count of admitted requests attributed to the
	// current window.
	InWindow int
}

// Status is the read-only record returned by Limiter.Inspect. It never
// mutates state or consumes capacity.
type Status struct {
	ClientID string
	Decision
}
