package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	lim := New(cfg)
	lim.now = clock.now
	lim.last = clock.t
	return lim, clock
}

func TestLimiter_BurstThenBlocked(t *testing.T) {
	lim, _ := newTestLimiter(Config{RequestsPerSecond: 2, Burst: 3})

	assert.True(t, lim.Allow())
	assert.True(t, lim.Allow())
	assert.True(t, lim.Allow())
	assert.False(t, lim.Allow(), "bucket should be empty after burst")
}

func TestLimiter_Refills(t *testing.T) {
	lim, clock := newTestLimiter(Config{RequestsPerSecond: 2, Burst: 1})

	require.True(t, lim.Allow())
	require.False(t, lim.Allow())

	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.True(t, lim.Allow(), "one token refilled after 1/rate seconds")
}

func TestLimiter_ReserveReportsWait(t *testing.T) {
	lim, _ := newTestLimiter(Config{RequestsPerSecond: 4, Burst: 1})
	require.True(t, lim.Allow())

	wait, ok := lim.reserve()
	assert.False(t, ok)
	assert.Equal(t, 250*time.Millisecond, wait)
}

func TestLimiter_ZeroRateNeverBlocks(t *testing.T) {
	lim := New(Config{})
	for i := 0; i < 100; i++ {
		require.True(t, lim.Allow())
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	lim, _ := newTestLimiter(Config{RequestsPerSecond: 0.001, Burst: 1})
	require.True(t, lim.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, lim.Wait(ctx), context.DeadlineExceeded)
}

func TestManager_SharesLimiterPerKey(t *testing.T) {
	m := NewManager(Config{RequestsPerSecond: 1, Burst: 1})

	assert.Same(t, m.For("acme"), m.For("acme"))
	assert.NotSame(t, m.For("acme"), m.For("globex"))
	require.NoError(t, m.Wait(context.Background(), "acme"))
}
