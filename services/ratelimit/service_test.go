package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestService(cfg Config) (*RateLimitService, *time.Time) {
	s := NewRateLimitService(cfg, zap.NewNop())
	clock := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestRateLimitService_Allow(t *testing.T) {
	t.Run("burst then reject", func(t *testing.T) {
		s, _ := newTestService(Config{RequestsPerSecond: 1, Burst: 3})

		assert.True(t, s.Allow("ip:10.0.0.1"))
		assert.True(t, s.Allow("ip:10.0.0.1"))
		assert.True(t, s.Allow("ip:10.0.0.1"))
		assert.False(t, s.Allow("ip:10.0.0.1"))
	})

	t.Run("clients are independent", func(t *testing.T) {
		s, _ := newTestService(Config{RequestsPerSecond: 1, Burst: 1})

		assert.True(t, s.Allow("ip:10.0.0.1"))
		assert.False(t, s.Allow("ip:10.0.0.1"))
		assert.True(t, s.Allow("ip:10.0.0.2"))
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		s, clock := newTestService(Config{RequestsPerSecond: 1, Burst: 1})

		assert.True(t, s.Allow("user:octocat"))
		assert.False(t, s.Allow("user:octocat"))

		*clock = clock.Add(time.Second)
		assert.True(t, s.Allow("user:octocat"))
	})
}

func TestRateLimitService_EvictsLeastRecentlyUsed(t *testing.T) {
	s, _ := newTestService(Config{RequestsPerSecond: 1, Burst: 1, MaxEntries: 2})

	assert.True(t, s.Allow("a"))
	assert.True(t, s.Allow("b"))
	assert.False(t, s.Allow("a")) // a becomes most recent
	assert.True(t, s.Allow("c"))  // evicts b

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Allow("b"), "evicted client starts with a fresh bucket")
}

func TestRateLimitService_IdleBucketsExpire(t *testing.T) {
	s, _ := newTestService(Config{RequestsPerSecond: 1, Burst: 1, IdleTimeout: 50 * time.Millisecond})

	assert.True(t, s.Allow("ip:10.0.0.1"))
	assert.False(t, s.Allow("ip:10.0.0.1"))

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, s.Allow("ip:10.0.0.1"), "expired client starts with a fresh bucket")
}

func TestRateLimitService_Defaults(t *testing.T) {
	s := NewRateLimitService(Config{RequestsPerSecond: 5}, zap.NewNop())
	assert.Equal(t, DefaultMaxEntries, s.max)
	assert.Equal(t, 1, s.burst)
	assert.Equal(t, 0, s.Len())
}

func TestRateLimitService_Concurrent(t *testing.T) {
	s := NewRateLimitService(Config{RequestsPerSecond: 1000, Burst: 1000}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Allow(fmt.Sprintf("client-%d", i%5))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, s.Len())
}
