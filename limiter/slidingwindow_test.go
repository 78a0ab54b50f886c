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

func TestSlidingWindow_AdmitsUpToCapacityThenRejects(t *testing.T) {
	p, err := policy.New(3, time.Minute, policy.SlidingWindow)
	require.NoError(t, err)
	mc := clock.NewMock(time.Now())
	w := limiter.NewSlidingWindow(p, mc, metrics.NewNoop())

	for i := 0; i < 3; i++ {
		d, err := w.Decide("client-a")
		require.NoError(t, err)
		assert.True(t, d.Admitted)
	}

	d, err := w.Decide("client-a")
	require.NoError(t, err)
	assert.False(t, d.Admitted)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestSlidingWindow_ExpiredTimestampsFreeCapacity(t *testing.T) {
	p, err := policy.New(2, time.Second, policy.SlidingWindow)
	require.NoError(t, err)
	mc := clock.NewMock(time.Now())
	w := limiter.NewSlidingWindow(p, mc, metrics.NewNoop())

	_, err = w.Decide("client-a")
	require.NoError(t, err)
	_, err = w.Decide("client-a")
	require.NoError(t, err)

	d, err := w.Decide("client-a")
	require.NoError(t, err)
	require.False(t, d.Admitted)

	mc.Advance(time.Second + time.Millisecond)
	d, err = w.Decide("client-a")
	require.NoError(t, err)
	assert.True(t, d.Admitted)
}

func TestSlidingWindow_EmptyClientID(t *testing.T) {
	p, err := policy.New(1, time.Second, policy.SlidingWindow)
	require.NoError(t, err)
	w := limiter.NewSlidingWindow(p, clock.NewMock(time.Now()), metrics.NewNoop())

	_, err = w.Decide("")
	assert.ErrorIs(t, err, limiter.ErrEmptyClientID)
}

func TestSlidingWindow_ResetClearsLog(t *testing.T) {
	p, err := policy.New(1, time.Second, policy.SlidingWindow)
	require.NoError(t, err)
	mc := clock.NewMock(time.Now())
	w := limiter.NewSlidingWindow(p, mc, metrics.NewNoop())

	_, err = w.Decide("client-a")
	require.NoError(t, err)
	d, err := w.Decide("client-a")
	require.NoError(t, err)
	require.False(t, d.Admitted)

	w.Reset("client-a")
	d, err = w.Decide("client-a")
	require.NoError(t, err)
	assert.True(t, d.Admitted)
}

func TestSlidingWindow_InspectDoesNotConsume(t *testing.T) {
	p, err := policy.New(2, time.Second, policy.SlidingWindow)
	require.NoError(t, err)
	mc := clock.NewMock(time.Now())
	w := limiter.NewSlidingWindow(p, mc, metrics.NewNoop())

	_, err = w.Decide("client-a")
	require.NoError(t, err)

	before := w.Inspect("client-a")
	after := w.Inspect("client-a")
	assert.Equal(t, before.InWindow, after.InWindow)
}
