package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratelimiter/clock"
	"ratelimiter/metrics"
	"ratelimiter/policy"
	"ratelimiter/store"
)

func TestNewConstructor_DialErrorWrappedAsConfigError(t *testing.T) {
	connect := func(endpoint string) (store.Client, error) {
		return nil, errors.New("dial tcp: no such host")
	}
	ctor := store.NewConstructor(connect, zerolog.Nop())

	p := newTestPolicy(t, 5, time.Minute)
	_, err := ctor(p, clock.NewMock(time.Now()), metrics.NewNoop())

	var cfgErr *policy.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "store_endpoint", cfgErr.Field)
}

func TestNewConstructor_BuildsDistributedLimiter(t *testing.T) {
	connect := func(endpoint string) (store.Client, error) {
		return newFakeClient(), nil
	}
	ctor := store.NewConstructor(connect, zerolog.Nop())

	p := newTestPolicy(t, 5, time.Minute)
	l, err := ctor(p, clock.NewMock(time.Now()), metrics.NewNoop())
	require.NoError(t, err)
	require.NotNil(t, l)
}
