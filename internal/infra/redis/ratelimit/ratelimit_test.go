package infra_ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T, max int, window time.Duration) (*Driver, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, max, window), mr
}

func TestAllowUpToMaxThenThrottle(t *testing.T) {
	d, _ := newDriver(t, 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, retryAfter, err := d.Allow("1.2.3.4", "join")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, retryAfter)
	}

	ok, retryAfter, err := d.Allow("1.2.3.4", "join")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 61)
}

func TestWindowsAreIndependentPerActionAndAddr(t *testing.T) {
	d, _ := newDriver(t, 1, time.Minute)

	ok, _, err := d.Allow("1.2.3.4", "join")
	require.NoError(t, err)
	require.True(t, ok)

	// Same addr hitting its cap on one action leaves others untouched.
	ok, _, _ = d.Allow("1.2.3.4", "join")
	assert.False(t, ok)
	ok, _, _ = d.Allow("1.2.3.4", "message")
	assert.True(t, ok)
	ok, _, _ = d.Allow("5.6.7.8", "join")
	assert.True(t, ok)
}

func TestWindowResets(t *testing.T) {
	d, mr := newDriver(t, 1, time.Minute)

	ok, _, _ := d.Allow("1.2.3.4", "join")
	require.True(t, ok)
	ok, _, _ = d.Allow("1.2.3.4", "join")
	require.False(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, _, err := d.Allow("1.2.3.4", "join")
	require.NoError(t, err)
	assert.True(t, ok)
}
