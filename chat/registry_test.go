package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomRegistrySeed(t *testing.T) {
	r := NewRoomRegistry([]string{"General", "Cars"})
	assert.True(t, r.Has("General"))
	assert.True(t, r.Has("Cars"))
	assert.False(t, r.Has("Sports"))
	assert.Len(t, r.Rooms(), 2)
}

func TestEnsureRoomIdempotent(t *testing.T) {
	r := NewRoomRegistry(nil)
	r.EnsureRoom("Cars")
	r.EnsureRoom("Cars")
	r.EnsureRoom("Cars")
	assert.True(t, r.Has("Cars"))
	assert.Len(t, r.Rooms(), 1)
}
