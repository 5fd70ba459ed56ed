// Package ratelimit implements a per-client sliding-window request
// counter used by the dispatcher. It never blocks; callers translate a
// denial into a retry-after message.
package ratelimit

import (
	"sync"
	"time"
)

// Result is the outcome of a limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter tracks request timestamps per client id.
type Limiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	now     func() time.Time
}

// New creates a Limiter.
func New() *Limiter {
	return &Limiter{
		clients: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Check records a request for clientID if allowed and reports the
// decision. limit is the maximum number of requests inside the window.
func (l *Limiter) Check(clientID string, limit int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	// Drop timestamps that slid out of the window.
	stamps := l.clients[clientID]
	live := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= limit {
		l.clients[clientID] = live
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   live[0].Add(window),
		}
	}

	live = append(live, now)
	l.clients[clientID] = live
	return Result{
		Allowed:   true,
		Remaining: limit - len(live),
		ResetAt:   live[0].Add(window),
	}
}

// Reset clears the window for a client. Used by tests.
func (l *Limiter) Reset(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, clientID)
}
