package chat

// Transport is the pub-sub substrate the services emit through. The ws.Hub
// implements it; tests use an in-memory recorder.
//
// Emits are fire-and-forget: delivery failures are a transport concern and
// never surface to the services.
type Transport interface {
	// Join adds the connection to a room.
	Join(connId, room string)
	// Leave removes the connection from a room.
	Leave(connId, room string)
	// Rooms returns the rooms the connection currently occupies.
	Rooms(connId string) []string

	// ToConn emits to one connection.
	ToConn(connId, event string, payload interface{})
	// ToRoom emits to every connection in the room, including the sender.
	ToRoom(room, event string, payload interface{})
	// ToRoomExcept emits to every connection in the room except one.
	ToRoomExcept(exceptConnId, room, event string, payload interface{})
	// Broadcast emits to every connection except one.
	Broadcast(exceptConnId, event string, payload interface{})
}
