package insight

import (
	"sync"
	"time"

	"coinwise/internal/core"
)

const (
	// RateWindow and MaxGenerations bound insight generation per owner:
	// at most 10 admissions in any rolling 60 minutes.
	RateWindow     = time.Hour
	MaxGenerations = 10
)

// RateLimiter tracks per-owner admission timestamps in a sliding window.
// All mutation happens under one mutex; the lock is never held across a
// generation call. A slot is consumed at admission, whether or not the
// generation that follows completes.
type RateLimiter struct {
	mu         sync.Mutex
	admissions map[string][]time.Time
	window     time.Duration
	max        int
	now        func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		admissions: make(map[string][]time.Time),
		window:     RateWindow,
		max:        MaxGenerations,
		now:        time.Now,
	}
}

// SetClock replaces the limiter's time source for tests.
func (l *RateLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// CheckAndRecord admits one generation for the owner or rejects it with
// a RateLimitedError carrying the wait until the oldest slot frees up.
// A rejected check consumes no slot.
func (l *RateLimiter) CheckAndRecord(userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := pruneBefore(l.admissions[userID], now.Add(-l.window))

	if len(recent) >= l.max {
		l.admissions[userID] = recent
		return &core.RateLimitedError{
			RetryAfter: recent[0].Add(l.window).Sub(now),
		}
	}

	l.admissions[userID] = append(recent, now)
	return nil
}

// CleanExpired drops owners whose whole window has aged out, so idle
// users do not accumulate. Implements cache.Cleaner.
func (l *RateLimiter) CleanExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	removed := 0
	for userID, times := range l.admissions {
		recent := pruneBefore(times, cutoff)
		if len(recent) == 0 {
			delete(l.admissions, userID)
			removed++
			continue
		}
		l.admissions[userID] = recent
	}
	return removed
}

// pruneBefore drops timestamps at or before the cutoff. Admissions are
// appended in order, so the slice stays sorted.
func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}
