package ratelimit

import (
	"sync"
	"time"
)

// bucket is the refill state for one key. All fields are guarded by the
// owning RateLimiter's mutex.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter is a keyed token bucket. Every key owns a bucket of
// capacity tokens that refills at refillRate tokens per second, and
// Allow spends one token per request. Buckets idle for longer than ttl
// are dropped by a background sweep.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	capacity   int
	refillRate float64
	ttl        time.Duration
}

// NewRateLimiter creates a keyed limiter allowing bursts of capacity
// requests and a sustained refillRate requests per second per key.
// A ttl of 0 keeps idle buckets forever.
func NewRateLimiter(capacity int, refillRate float64, ttl time.Duration) *RateLimiter {
	limiter := &RateLimiter{
		buckets:    make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
	}
	if ttl > 0 {
		go limiter.sweep()
	}
	return limiter
}

// Allow reports whether the request for key fits its budget, spending
// one token when it does.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.refill(key)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Tokens returns how many tokens key has available right now.
func (rl *RateLimiter) Tokens(key string) float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.refill(key).tokens
}

// refill brings key's bucket up to date. Caller must hold mu.
func (rl *RateLimiter) refill(key string) *bucket {
	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.capacity), lastSeen: now}
		rl.buckets[key] = b
		return b
	}
	elapsed := now.Sub(b.lastSeen).Seconds()
	b.tokens = min(float64(rl.capacity), b.tokens+elapsed*rl.refillRate)
	b.lastSeen = now
	return b
}

// Reset refills key's bucket to full capacity.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		b.tokens = float64(rl.capacity)
		b.lastSeen = time.Now()
	}
}

// Remove drops key's bucket entirely.
func (rl *RateLimiter) Remove(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, key)
}

// sweep drops buckets idle for longer than ttl, so keys seen once
// (scanners, rotating NATs) do not pin memory forever.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()

	for now := range ticker.C {
		rl.mu.Lock()
		for key, b := range rl.buckets {
			if now.Sub(b.lastSeen) > rl.ttl {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Stats describes one limiter's configuration and current load.
type Stats struct {
	ActiveBuckets int
	TotalCapacity int
	RefillRate    float64
}

// GetStats returns the limiter's configuration and bucket count.
func (rl *RateLimiter) GetStats() Stats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return Stats{
		ActiveBuckets: len(rl.buckets),
		TotalCapacity: rl.capacity,
		RefillRate:    rl.refillRate,
	}
}
