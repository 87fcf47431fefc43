package chat

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypingTrackerFiresOnce(t *testing.T) {
	tracker := NewTypingTracker()
	var fired int32
	tracker.Arm("alice", 30*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.False(t, tracker.Pending("alice"))
}

func TestTypingTrackerSupersede(t *testing.T) {
	tracker := NewTypingTracker()
	var first, second int32
	tracker.Arm("alice", 50*time.Millisecond, func() { atomic.AddInt32(&first, 1) })
	tracker.Arm("alice", 50*time.Millisecond, func() { atomic.AddInt32(&second, 1) })

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&first), "superseded timer must not fire")
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
}

func TestTypingTrackerCancel(t *testing.T) {
	tracker := NewTypingTracker()
	var fired int32
	tracker.Arm("alice", 50*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	assert.True(t, tracker.Cancel("alice"))
	assert.False(t, tracker.Cancel("alice"))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestTypingTrackerCancelAll(t *testing.T) {
	tracker := NewTypingTracker()
	var fired int32
	tracker.Arm("alice", 50*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	tracker.Arm("bob", 50*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	tracker.CancelAll()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	assert.False(t, tracker.Pending("alice"))
	assert.False(t, tracker.Pending("bob"))
}
