package security

import (
	"sync"
	"time"
)

type throttleEntry struct {
	window int64
	count  int
}

// LoginThrottle is a fixed-window attempt limiter keyed by client address.
// It backs the login endpoint so password guessing stays slow.
type LoginThrottle struct {
	limit         int
	windowSeconds int64

	mu       sync.Mutex
	counters map[string]*throttleEntry
}

// NewLoginThrottle builds a throttle allowing limit attempts per window.
func NewLoginThrottle(limit int, window time.Duration) *LoginThrottle {
	windowSeconds := int64(window / time.Second)
	if windowSeconds < 1 {
		windowSeconds = 1
	}
	return &LoginThrottle{
		limit:         limit,
		windowSeconds: windowSeconds,
		counters:      make(map[string]*throttleEntry),
	}
}

// Allow reports whether another attempt is allowed for the key in the
// window containing now. A non-positive limit disables the throttle.
func (t *LoginThrottle) Allow(key string, now time.Time) bool {
	if t == nil || t.limit <= 0 || key == "" {
		return true
	}
	window := now.Unix() / t.windowSeconds

	t.mu.Lock()
	defer t.mu.Unlock()
	entry := t.counters[key]
	if entry == nil {
		entry = &throttleEntry{window: window}
		t.counters[key] = entry
	}
	if entry.window != window {
		entry.window = window
		entry.count = 0
	}
	if entry.count >= t.limit {
		return false
	}
	entry.count++
	return true
}
