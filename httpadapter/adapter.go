// Package httpadapter is a reference implementation of spec.md §6.2's
// HTTP filter contract. It is deliberately built on net/http alone —
// the HTTP server framework, route registration, and response-header
// injection middleware are out of scope per spec.md §1; this package
// exists only to pin down what a host framework's middleware would call
// through to.
package httpadapter

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"ratelimiter/limiter"
)

// KeyFunc derives a client identifier from a request. DefaultKeyFunc
// implements spec.md §6.2 step 1's fallback chain.
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc uses the X-API-Key header, falling back to the peer
// network address, falling back to the literal "unknown".
func DefaultKeyFunc(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// rejection is the JSON body emitted on a 429, per spec.md §6.2 step 4.
type rejection struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retry_after"`
	ResetAt    string `json:"reset_at"`
}

// Filter wraps next with rate limiting: it derives a client ID via
// keyFunc (DefaultKeyFunc if nil), calls lim.Decide, and either forwards
// the request with X-RateLimit-* headers attached, or short-circuits
// with a 429 and the JSON body spec.md §6.2 describes.
func Filter(lim limiter.Limiter, capacity int, window time.Duration, keyFunc KeyFunc, logger zerolog.Logger, next http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = DefaultKeyFunc
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := keyFunc(r)

		d, err := lim.Decide(clientID)
		if err != nil {
			logger.Error().Err(err).Str("client_id", clientID).Msg("ratelimiter: decide failed")
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(capacity))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if d.Admitted {
			next.ServeHTTP(w, r)
			return
		}

		retryAfterSeconds := int64(d.RetryAfter / time.Second)
		h.Set("Retry-After", strconv.FormatInt(retryAfterSeconds, 10))
		h.Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(rejection{
			Error:      "Rate limit exceeded",
			Message:    "Maximum " + strconv.Itoa(capacity) + " requests per " + strconv.FormatFloat(window.Seconds(), 'g', -1, 64) + "s allowed",
			RetryAfter: retryAfterSeconds,
			ResetAt:    d.ResetAt.UTC().Format(time.RFC3339),
		})
	})
}
