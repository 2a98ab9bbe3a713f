package router

import (
	"sync"
	"time"
)

// RateLimiter applies a per-client sliding window limit to inbound events,
// keyed by credential token. Keeps a flooding or broken client from
// monopolizing the hub loop.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimit
}

type clientLimit struct {
	eventCount  int
	windowStart time.Time
}

const (
	eventsPerWindow = 100
	window          = time.Minute
)

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientLimit),
	}
}

// Allow reports whether the client may send another event (100 per minute).
func (rl *RateLimiter) Allow(token string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	limit, exists := rl.clients[token]
	if !exists {
		rl.clients[token] = &clientLimit{eventCount: 1, windowStart: now}
		return true
	}

	if now.Sub(limit.windowStart) >= window {
		limit.eventCount = 1
		limit.windowStart = now
		return true
	}

	if limit.eventCount >= eventsPerWindow {
		return false
	}

	limit.eventCount++
	return true
}

// Cleanup removes entries idle for five windows. Call periodically; client
// entries otherwise accumulate for the process lifetime.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for token, limit := range rl.clients {
		if now.Sub(limit.windowStart) > 5*window {
			delete(rl.clients, token)
		}
	}
}
