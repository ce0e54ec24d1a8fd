// Package middleware holds HTTP middleware shared across API versions.
package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SessionRateLimiter enforces a per-session message budget. Each session gets
// its own token bucket refilled at perHour/3600 tokens per second with a
// burst of perHour, which caps any sliding hour at roughly perHour messages.
type SessionRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*sessionLimiter
	perHour  int

	done     chan struct{}
	stopOnce sync.Once
}

type sessionLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSessionRateLimiter creates a limiter allowing perHour messages per
// session per hour.
func NewSessionRateLimiter(perHour int) *SessionRateLimiter {
	l := &SessionRateLimiter{
		limiters: make(map[string]*sessionLimiter),
		perHour:  perHour,
		done:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (l *SessionRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Allow reports whether the session may send another message now.
func (l *SessionRateLimiter) Allow(sessionID string) bool {
	l.mu.Lock()
	s, ok := l.limiters[sessionID]
	if !ok {
		s = &sessionLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perHour)/3600.0), l.perHour),
		}
		l.limiters[sessionID] = s
	}
	s.lastSeen = time.Now()
	l.mu.Unlock()

	return s.limiter.Allow()
}

// cleanupLoop drops limiters for sessions idle longer than two hours so the
// map does not grow without bound.
func (l *SessionRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * time.Hour)
			l.mu.Lock()
			for id, s := range l.limiters {
				if s.lastSeen.Before(cutoff) {
					delete(l.limiters, id)
				}
			}
			l.mu.Unlock()
		}
	}
}
