package chat

import (
	"sync"
	"time"
)

// TypingTracker holds at most one pending typing-expiry timer per participant
// id. It is owned by a single Session, so two connections logged in as the
// same participant do not clobber each other's timers.
type TypingTracker struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{timers: make(map[string]*time.Timer)}
}

// Arm cancels any pending timer for the participant and arms a new one that
// runs fn after d. The timer releases its own entry on fire.
func (t *TypingTracker) Arm(userId string, d time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[userId]; ok {
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		// a superseding Arm may have replaced this timer between fire and
		// lock acquisition
		if t.timers[userId] != timer {
			t.mu.Unlock()
			return
		}
		delete(t.timers, userId)
		t.mu.Unlock()
		fn()
	})
	t.timers[userId] = timer
}

// Cancel stops and releases the pending timer for the participant, if any.
func (t *TypingTracker) Cancel(userId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	timer, ok := t.timers[userId]
	if !ok {
		return false
	}
	timer.Stop()
	delete(t.timers, userId)
	return true
}

// CancelAll stops and releases every pending timer. Called on logout and
// disconnect so a stale timer cannot fire after the participant has left.
func (t *TypingTracker) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for userId, timer := range t.timers {
		timer.Stop()
		delete(t.timers, userId)
	}
}

// Pending reports whether a timer is armed for the participant.
func (t *TypingTracker) Pending(userId string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[userId]
	return ok
}
