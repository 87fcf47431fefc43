package persistence

import (
	"fmt"
	"testing"
	"time"

	"chat-presence/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Persister {
	t.Helper()
	p, err := NewBuntPersister(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestUpsertUserPreservesMuteAndCreation(t *testing.T) {
	p := newTestStore(t)

	user := &types.User{Id: "alice", Status: types.StatusOnline, NowRoom: "Cars", Role: types.RoleModerator}
	require.NoError(t, p.UpsertUser(user))
	assert.False(t, user.IsMuted)
	assert.False(t, user.CreatedAt.IsZero())
	created := user.CreatedAt

	_, err := p.SetUserMuted("alice", true)
	require.NoError(t, err)

	// re-login overwrites status, room and role only
	relogin := &types.User{Id: "alice", Status: types.StatusOnline, NowRoom: "Sports", Role: types.RoleMember}
	require.NoError(t, p.UpsertUser(relogin))
	assert.True(t, relogin.IsMuted)
	assert.Equal(t, created, relogin.CreatedAt)
	assert.Equal(t, "Sports", relogin.NowRoom)
	assert.Equal(t, types.RoleMember, relogin.Role)
}

func TestGetUserNotFound(t *testing.T) {
	p := newTestStore(t)

	_, err := p.GetUser("nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.SetUserStatus("nobody", types.StatusOnline)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountRoomOccupants(t *testing.T) {
	p := newTestStore(t)

	require.NoError(t, p.UpsertUser(&types.User{Id: "alice", Status: types.StatusOnline, NowRoom: "Cars", Role: types.RoleModerator}))
	require.NoError(t, p.UpsertUser(&types.User{Id: "bob", Status: types.StatusTyping, NowRoom: "Cars", Role: types.RoleMember}))
	require.NoError(t, p.UpsertUser(&types.User{Id: "carol", Status: types.StatusOffline, NowRoom: "Cars", Role: types.RoleMember}))
	require.NoError(t, p.UpsertUser(&types.User{Id: "dave", Status: types.StatusOnline, NowRoom: "Sports", Role: types.RoleModerator}))

	count, err := p.CountRoomOccupants("Cars")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	occupants, err := p.RoomOccupants("Cars")
	require.NoError(t, err)
	assert.Len(t, occupants, 2)
}

func TestRecentMessagesWindow(t *testing.T) {
	p := newTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		msg := &types.Message{
			UserId:    "alice",
			Room:      "Cars",
			Text:      fmt.Sprintf("msg-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, p.StoreMessage(msg))
	}
	require.NoError(t, p.StoreMessage(&types.Message{
		UserId: "alice", Room: "Sports", Text: "elsewhere", CreatedAt: base,
	}))

	messages, err := p.RecentMessages("Cars", 4)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	// newest 4, oldest-first
	assert.Equal(t, "msg-6", messages[0].Text)
	assert.Equal(t, "msg-9", messages[3].Text)
}

func TestPruneMessages(t *testing.T) {
	p := newTestStore(t)

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, p.StoreMessage(&types.Message{UserId: "alice", Room: "Cars", Text: "old", CreatedAt: old}))
	require.NoError(t, p.StoreMessage(&types.Message{UserId: "alice", Room: "Cars", Text: "new", CreatedAt: time.Now().UTC()}))

	pruned, err := p.PruneMessages(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	messages, err := p.RecentMessages("Cars", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "new", messages[0].Text)
}
