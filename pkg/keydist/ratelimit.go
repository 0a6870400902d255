// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package keydist

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// rateLimitStaleAge is how long an idle IP keeps its bucket.
	rateLimitStaleAge = 10 * time.Minute

	// rateLimitCleanupInterval is how often idle buckets are evicted.
	rateLimitCleanupInterval = time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter is a per-IP token bucket with background eviction of idle
// entries.
type rateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     rate.Limit
	burst    int
	staleAge time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newRateLimiter(r float64, burst int, staleAge, cleanupInterval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     rate.Limit(r),
		burst:    burst,
		staleAge: staleAge,
		stopCh:   make(chan struct{}),
	}
	go rl.evictLoop(cleanupInterval)
	return rl
}

// Allow reports whether ip may proceed, consuming one token if so.
func (rl *rateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.buckets[ip] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

// Len returns the number of tracked IPs.
func (rl *rateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Stop halts eviction. It is safe to call more than once.
func (rl *rateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *rateLimiter) evictLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

func (rl *rateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.staleAge {
			delete(rl.buckets, ip)
		}
	}
}
