// Package guard holds the admission-control primitives of the engine:
// a per-key sliding-window rate limiter and per-key circuit breakers.
package guard

import (
	"sync"
	"time"
)

// RateLimiter admits at most max calls per key within a trailing window.
// Check-and-record is atomic per key; unrelated keys proceed in parallel.
// A rejected call consumes no slot.
type RateLimiter struct {
	window time.Duration
	max    int

	mu      sync.Mutex
	windows map[string]*callWindow

	now func() time.Time // injectable clock for tests
}

type callWindow struct {
	mu    sync.Mutex
	calls []time.Time
}

// NewRateLimiter creates a limiter with the given trailing window and
// per-key admission cap.
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		window:  window,
		max:     max,
		windows: make(map[string]*callWindow),
		now:     time.Now,
	}
}

// Admit records a call for key if the window has room and reports whether
// it was admitted. On rejection no state is mutated; retryAfter hints how
// long until the oldest admission falls out of the window.
func (l *RateLimiter) Admit(key string) (admitted bool, retryAfter time.Duration) {
	w := l.windowFor(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Drop timestamps that have slid out of the window.
	kept := w.calls[:0]
	for _, ts := range w.calls {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.calls = kept

	if len(w.calls) >= l.max {
		oldest := w.calls[0]
		return false, oldest.Sub(cutoff)
	}

	w.calls = append(w.calls, now)
	return true, 0
}

// Pending returns the number of admissions currently inside the window for
// key. Used by policy stats.
func (l *RateLimiter) Pending(key string) int {
	w := l.windowFor(key)

	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	n := 0
	for _, ts := range w.calls {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

func (l *RateLimiter) windowFor(key string) *callWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &callWindow{}
		l.windows[key] = w
	}
	return w
}
