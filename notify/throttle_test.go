package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestThrottleEnforcesMinimumInterval(t *testing.T) {
	th := NewThrottle(30 * time.Minute)

	assert.True(t, th.ShouldNotify("hot", "u1", t0))
	assert.False(t, th.ShouldNotify("hot", "u1", t0.Add(29*time.Minute)))
	assert.True(t, th.ShouldNotify("hot", "u1", t0.Add(31*time.Minute)))
}

func TestThrottleKeysAreIndependent(t *testing.T) {
	th := NewThrottle(30 * time.Minute)

	assert.True(t, th.ShouldNotify("hot", "u1", t0))
	assert.True(t, th.ShouldNotify("warm", "u1", t0))
	assert.True(t, th.ShouldNotify("hot", "u2", t0))
}

func TestThrottleDeniedAttemptDoesNotResetClock(t *testing.T) {
	th := NewThrottle(30 * time.Minute)

	assert.True(t, th.ShouldNotify("hot", "u1", t0))
	assert.False(t, th.ShouldNotify("hot", "u1", t0.Add(20*time.Minute)))
	// 31 minutes after the approved send, not after the denied attempt.
	assert.True(t, th.ShouldNotify("hot", "u1", t0.Add(31*time.Minute)))
}

func TestThrottleZeroIntervalApprovesAll(t *testing.T) {
	th := NewThrottle(0)
	assert.True(t, th.ShouldNotify("hot", "u1", t0))
	assert.True(t, th.ShouldNotify("hot", "u1", t0))
}

func TestPruneDropsExpiredTickets(t *testing.T) {
	th := NewThrottle(30 * time.Minute)
	th.ShouldNotify("hot", "u1", t0)
	th.ShouldNotify("hot", "u2", t0.Add(20*time.Minute))

	th.Prune(t0.Add(35 * time.Minute))

	th.mu.Lock()
	_, u1 := th.lastSent["hot|u1"]
	_, u2 := th.lastSent["hot|u2"]
	th.mu.Unlock()
	assert.False(t, u1)
	assert.True(t, u2)
}
