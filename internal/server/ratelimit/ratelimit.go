// Package ratelimit throttles clients per route with token buckets.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	capacity float64
	rate     float64 // tokens per second
	tokens   float64
	last     time.Time
}

// take refills the bucket up to now and consumes a token if one is available.
func (b *bucket) take(now time.Time) (ok bool, remaining int, full time.Time) {
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.last).Seconds()*b.rate)
	b.last = now
	if b.tokens >= 1 {
		b.tokens--
		ok = true
	}
	missing := b.capacity - b.tokens
	return ok, int(b.tokens), now.Add(time.Duration(missing / b.rate * float64(time.Second)))
}

// Info describes the limit applied to one request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter tracks one bucket per client and route.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewLimiter returns a limiter. A nil config enables the defaults.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:       true,
			DefaultLimit:  1000,
			DefaultWindow: time.Minute,
			IdleTTL:       time.Hour,
		}
	}
	return &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether clientID may call method path now.
func (l *Limiter) Allow(clientID, method, path string) (bool, Info) {
	if !l.config.Enabled || l.config.Allowlist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Denylist[clientID] {
		return false, Info{}
	}

	route := match(l.config.Routes, method, path)
	if route == nil {
		route = &Route{Method: method, Path: path, Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	}
	if route.Limit <= 0 || route.Window <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	key := clientID + " " + route.Method + " " + route.Path

	l.mu.Lock()
	b, exists := l.buckets[key]
	if !exists {
		capacity := route.Burst
		if capacity <= 0 {
			capacity = route.Limit
		}
		b = &bucket{
			capacity: float64(capacity),
			rate:     float64(route.Limit) / route.Window.Seconds(),
			tokens:   float64(capacity),
			last:     now,
		}
		l.buckets[key] = b
	}
	ok, remaining, full := b.take(now)
	var retry time.Duration
	if !ok {
		retry = time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
	}
	l.mu.Unlock()

	return ok, Info{Allowed: ok, Limit: route.Limit, Remaining: remaining, ResetTime: full, RetryAfter: retry}
}

// Prune drops buckets that have not been used within the idle TTL and
// returns how many were removed.
func (l *Limiter) Prune() int {
	ttl := l.config.IdleTTL
	if ttl <= 0 {
		return 0
	}
	cutoff := l.now().Add(-ttl)

	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, b := range l.buckets {
		if b.last.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Run prunes idle buckets every interval until stop is closed.
func (l *Limiter) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Prune()
		case <-stop:
			return
		}
	}
}
