package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxEntries bounds the number of tracked clients
	DefaultMaxEntries = 10000

	// DefaultIdleTimeout is how long an unused bucket is kept
	DefaultIdleTimeout = 30 * time.Minute
)

// Config holds configuration for RateLimitService
type Config struct {
	RequestsPerSecond float64
	Burst             int
	MaxEntries        int
	IdleTimeout       time.Duration
}

// RateLimitService keeps one token bucket per client key in memory. The least
// recently used bucket is evicted when MaxEntries is reached, and buckets
// unused for IdleTimeout expire.
type RateLimitService struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	max      int
	logger   *zap.Logger
	now      func() time.Time
}

// NewRateLimitService creates a new RateLimitService instance
func NewRateLimitService(cfg Config, logger *zap.Logger) *RateLimitService {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	onEvict := func(key string, _ *rate.Limiter) {
		logger.Debug("rate limiter dropped client", zap.String("client", key))
	}

	return &RateLimitService{
		limiters: expirable.NewLRU[string, *rate.Limiter](cfg.MaxEntries, onEvict, cfg.IdleTimeout),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		max:      cfg.MaxEntries,
		logger:   logger,
		now:      time.Now,
	}
}

// Allow reports whether the client identified by key may make a request now
func (s *RateLimitService) Allow(key string) bool {
	now := s.now()

	// Lookup and insert must be atomic so concurrent first requests share
	// one bucket.
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
	}
	// Add refreshes the expiry, so buckets expire after idling rather than
	// after creation.
	s.limiters.Add(key, limiter)
	return limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients
func (s *RateLimitService) Len() int {
	return s.limiters.Len()
}
