// Package webui provides the embedded web application for the ADEI Explorer.
// This file contains the token bucket limiter guarding the chat endpoints.
package webui

import (
	"context"
	"math"
	"sync"
	"time"
)

// bucketStaleAfter is how long an untouched bucket is kept before cleanup
// removes it. A stale bucket is equivalent to a full one.
const bucketStaleAfter = 10 * time.Minute

// TokenBucketLimiter limits chat questions per client IP. Every question
// costs one token; tokens refill continuously at the configured rate up to
// the burst capacity. LLM calls are the expensive path, so the limiter sits
// on /api/chat and /ws only.
//
// Thread safety is provided via sync.Mutex for concurrent access.
type TokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	rate    float64 // tokens per second
	burst   float64 // bucket capacity
}

// tokenBucket is one IP's balance. Refill happens lazily on Allow.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucketLimiter creates a TokenBucketLimiter with the given
// sustained rate and burst capacity. Non-positive values fall back to the
// chat rate configuration defaults (12 per minute, burst of 5).
func NewTokenBucketLimiter(ratePerMinute, burst int) *TokenBucketLimiter {
	if ratePerMinute < 1 {
		ratePerMinute = 12
	}
	if burst < 1 {
		burst = 5
	}
	return &TokenBucketLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    float64(ratePerMinute) / 60.0,
		burst:   float64(burst),
	}
}

// Allow takes one token from the IP's bucket. Returns (true, 0) when a
// token was available, or (false, wait) where wait is how long until the
// next token accrues.
func (l *TokenBucketLimiter) Allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[ip]
	if !ok {
		b = &tokenBucket{tokens: l.burst, lastRefill: now}
		l.buckets[ip] = b
	} else {
		elapsed := now.Sub(b.lastRefill).Seconds()
		b.tokens = math.Min(l.burst, b.tokens+elapsed*l.rate)
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
	return false, wait
}

// Tokens returns the current token balance for an IP without spending one.
// An unknown IP has a full bucket.
func (l *TokenBucketLimiter) Tokens(ip string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[ip]
	if !ok {
		return l.burst
	}

	elapsed := time.Since(b.lastRefill).Seconds()
	return math.Min(l.burst, b.tokens+elapsed*l.rate)
}

// Cleanup removes buckets that have not been touched recently.
// Returns the number of buckets that were removed.
func (l *TokenBucketLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-bucketStaleAfter)
	removed := 0
	for ip, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, ip)
			removed++
		}
	}

	return removed
}

// StartCleanupTicker starts a background goroutine that periodically
// calls Cleanup to remove stale buckets.
//
// The ticker stops when the provided context is cancelled.
func (l *TokenBucketLimiter) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

// Count returns the current number of tracked IP addresses.
func (l *TokenBucketLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
