package limiter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratelimiter/clock"
	"ratelimiter/limiter"
	"ratelimiter/metrics"
	"ratelimiter/policy"
)

func TestTokenBucket_AdmitsUpToBurstThenRejects(t *testing.T) {
	p, err := policy.New(3, time.Second, policy.TokenBucket)
	require.NoError(t, err)
	mc := clock.NewMock(time.Now())
	b := limiter.NewTokenBucket(p, mc, metrics.NewNoop())

	for i := 0; i < 3; i++ {
		d, err := b.Decide("client-a")
		require.NoError(t, err)
		assert.True(t, d.Admitted, "request %d should be admitted", i)
	}

	d, err := b.Decide("client-a")
	require.NoError(t, err)
	assert.False(t, d.Admitted)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	p, err := policy.New(1, time.Second, policy.TokenBucket)
	require.NoError(t, err)
	mc := clock.NewMock(time.Now())
	b := limiter.NewTokenBucket(p, mc, metrics.NewNoop())

	d, err := b.Decide("client-a")
	require.NoError(t, err)
	require.True(t, d.Admitted)

	d, err = b.Decide("client-a")
	require.NoError(t, err)
	require.False(t, d.Admitted)

	mc.Advance(time.Second)
	d, err = b.Decide("client-a")
	require.NoError(t, err)
	assert.True(t, d.Admitted)
}

func TestTokenBucket_BurstAllowsAboveCapacity(t *testing.T) {
	p, err := policy.New(2, time.Second, policy.TokenBucket, policy.WithBurst(5))
	require.NoError(t, err)
	mc := clock.NewMock(time.Now())
	b := limiter.NewTokenBucket(p, mc, metrics.NewNoop())

	// A new bucket starts at capacity (2 tokens); idle time at 2 tokens/sec
	// refills it up to the burst ceiling of 5.
	_, err = b.Decide("client-a")
	require.NoError(t, err)
	mc.Advance(5 * time.Second)

	admitted := 0
	for i := 0; i < 5; i++ {
		d, err := b.Decide("client-a")
		require.NoError(t, err)
		if d.Admitted {
			admitted++
		}
	}
	assert.Equal(t, 5, admitted)
}

func TestTokenBucket_EmptyClientID(t *testing.T) {
	p, err := policy.New(1, time.Second, policy.TokenBucket)
	require.NoError(t, err)
	b := limiter.NewTokenBucket(p, clock.NewMock(time.Now()), metrics.NewNoop())

	_, err = b.Decide("")
	assert.ErrorIs(t, err, limiter.ErrEmptyClientID)
}

func TestTokenBucket_ResetRestoresFullBucket(t *testing.T) {
	p, err := policy.New(1, time.Second, policy.TokenBucket)
	require.NoError(t, err)
	mc := clock.NewMock(time.Now())
	b := limiter.NewTokenBucket(p, mc, metrics.NewNoop())

	_, err = b.Decide("client-a")
	require.NoError(t, err)
	d, err := b.Decide("client-a")
	require.NoError(t, err)
	require.False(t, d.Admitted)

	b.Reset("client-a")
	d, err = b.Decide("client-a")
	require.NoError(t, err)
	assert.True(t, d.Admitted)
}

func TestTokenBucket_InspectDoesNotConsume(t *testing.T) {
	p, err := policy.New(2, time.Second, policy.TokenBucket)
	require.NoError(t, err)
	mc := clock.NewMock(time.Now())
	b := limiter.NewTokenBucket(p, mc, metrics.NewNoop())

	_, err = b.Decide("client-a")
	require.NoError(t, err)

	before := b.Inspect("client-a")
	after := b.Inspect("client-a")
	assert.Equal(t, before.Remaining, after.Remaining)
}

func TestTokenBucket_IndependentClients(t *testing.T) {
	p, err := policy.New(1, time.Second, policy.TokenBucket)
	require.NoError(t, err)
	mc := clock.NewMock(time.Now())
	b := limiter.NewTokenBucket(p, mc, metrics.NewNoop())

	d1, err := b.Decide("client-a")
	require.NoError(t, err)
	assert.True(t, d1.Admitted)

	d2, err := b.Decide("client-b")
	require.NoError(t, err)
	assert.True(t, d2.Admitted)
}
