package ws

import (
	"encoding/json"
	"testing"
	"time"

	"chat-presence/types"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func registeredClient(t *testing.T, hub *Hub, id string, want int) *Client {
	t.Helper()
	client := NewClient(hub, nil, id, nil)
	hub.Register <- client
	waitFor(t, "client registration", func() bool { return hub.NoClients() == want })
	return client
}

func receive(t *testing.T, client *Client) types.WebsocketMessage {
	t.Helper()
	select {
	case raw := <-client.Send:
		msg := types.WebsocketMessage{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("could not unmarshal wire message: %s", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return types.WebsocketMessage{}
}

func expectNothing(t *testing.T, client *Client) {
	t.Helper()
	select {
	case raw := <-client.Send:
		t.Fatalf("unexpected message: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubJoinAndLeave(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := registeredClient(t, hub, "c1", 1)

	hub.Join("c1", "Cars")
	rooms := hub.Rooms("c1")
	if len(rooms) != 1 || rooms[0] != "Cars" {
		t.Fatalf("expected [Cars], got %v", rooms)
	}

	hub.Leave("c1", "Cars")
	if len(hub.Rooms("c1")) != 0 {
		t.Fatal("expected no rooms after leave")
	}

	hub.Unregister <- client
	waitFor(t, "client unregistration", func() bool { return hub.NoClients() == 0 })
}

func TestHubToConn(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c1 := registeredClient(t, hub, "c1", 1)
	c2 := registeredClient(t, hub, "c2", 2)

	hub.ToConn("c1", "ping", types.ErrorMessage{Message: "hello"})
	msg := receive(t, c1)
	if msg.Event != "ping" {
		t.Fatalf("expected ping event, got %s", msg.Event)
	}
	expectNothing(t, c2)

	// unknown connection ids are ignored
	hub.ToConn("c3", "ping", nil)
}

func TestHubRoomScopedEmits(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c1 := registeredClient(t, hub, "c1", 1)
	c2 := registeredClient(t, hub, "c2", 2)
	c3 := registeredClient(t, hub, "c3", 3)

	hub.Join("c1", "Cars")
	hub.Join("c2", "Cars")
	hub.Join("c3", "Sports")

	hub.ToRoom("Cars", "note", nil)
	receive(t, c1)
	receive(t, c2)
	expectNothing(t, c3)

	hub.ToRoomExcept("c1", "Cars", "note", nil)
	receive(t, c2)
	expectNothing(t, c1)
}

func TestHubBroadcastExceptSender(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c1 := registeredClient(t, hub, "c1", 1)
	c2 := registeredClient(t, hub, "c2", 2)
	c3 := registeredClient(t, hub, "c3", 3)

	hub.Broadcast("c1", "note", nil)
	receive(t, c2)
	receive(t, c3)
	expectNothing(t, c1)
}

func TestHubUnregisterDropsRoomMembership(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c1 := registeredClient(t, hub, "c1", 1)
	c2 := registeredClient(t, hub, "c2", 2)
	hub.Join("c1", "Cars")
	hub.Join("c2", "Cars")

	hub.Unregister <- c1
	waitFor(t, "client unregistration", func() bool { return hub.NoClients() == 1 })

	hub.ToRoom("Cars", "note", nil)
	receive(t, c2)
	if len(hub.Rooms("c1")) != 0 {
		t.Fatal("expected no rooms for unregistered client")
	}
}
