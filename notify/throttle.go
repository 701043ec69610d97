// Package notify rate-limits outbound alerts. A throttle approves at most one
// notification per (category, subject) pair within the configured interval;
// it never blocks verdict emission or persistence, only suppresses duplicate
// alerts.
package notify

import (
	"sync"
	"time"
)

// Throttle enforces a minimum interval between notifications for the same
// (category, subject key) pair. Safe for concurrent use.
type Throttle struct {
	interval time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewThrottle constructs a throttle. interval <= 0 approves everything.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		lastSent: make(map[string]time.Time),
	}
}

// ShouldNotify reports whether an alert for (category, subjectKey) may go out
// now, recording the send time on approval.
func (t *Throttle) ShouldNotify(category, subjectKey string, now time.Time) bool {
	if t.interval <= 0 {
		return true
	}
	key := category + "|" + subjectKey

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Prune drops tickets whose last send is older than the interval, bounding
// memory on long-running engines.
func (t *Throttle) Prune(now time.Time) {
	if t.interval <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, last := range t.lastSent {
		if now.Sub(last) >= t.interval {
			delete(t.lastSent, key)
		}
	}
}
