// Package ratelimit implements a per-client token bucket limiter for the HTTP API.
package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// DefaultMaxClients bounds how many client buckets are tracked at once.
const DefaultMaxClients = 10000

// Config holds rate limiter configuration. Requests tokens refill evenly over
// Window and a client may spend all of them at once.
type Config struct {
	Requests   int
	Window     time.Duration
	MaxClients int
}

// Limiter manages per-client rate limits. Idle buckets expire after Window.
// A nil or disabled Limiter allows everything.
type Limiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// New creates a new Limiter, or returns nil when cfg disables limiting.
func New(cfg Config) *Limiter {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return nil
	}
	size := cfg.MaxClients
	if size <= 0 {
		size = DefaultMaxClients
	}
	return &Limiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](size, nil, cfg.Window),
		limit:    rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:    cfg.Requests,
		now:      time.Now,
	}
}

// Allow spends one token for client. When the bucket is empty it reports
// false and how long until the next token is available.
func (l *Limiter) Allow(client string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	limiter, ok := l.limiters.Get(client)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-adding refreshes the idle expiry.
	l.limiters.Add(client, limiter)
	l.mu.Unlock()

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Clients returns the number of tracked client buckets.
func (l *Limiter) Clients() int {
	if l == nil {
		return 0
	}
	return l.limiters.Len()
}
