package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"chat-presence/observability"
	"chat-presence/types"
)

const (
	maxMessageSize  = 4096
	pongWait        = 2 * time.Minute
	pingPeriod      = time.Minute
	writeWait       = 10 * time.Second
	sendChannelSize = 256
)

// Hub is the pub-sub substrate: it tracks connections and their dynamic room
// membership and fans outbound events to one connection, one room or all
// connections except the sender. It implements the chat package's Transport.
type Hub struct {
	// registered clients by connection id
	clients map[string]*Client

	// room name -> connection id -> client
	rooms map[string]map[string]*Client

	// connection id -> occupied room names
	byConn map[string]map[string]struct{}

	// Register a new client to the hub.
	Register chan *Client

	// Unregister a client from the hub.
	Unregister chan *Client

	// mutex for manipulating the clients and room maps
	sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		byConn:     make(map[string]map[string]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run is the main hub loop handling register and unregister events.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			log.Println("info: register new client")
			h.Lock()
			h.clients[client.Id] = client
			h.Unlock()
			observability.ActiveConnections.Inc()

		case client := <-h.Unregister:
			h.Lock()
			if _, ok := h.clients[client.Id]; ok {
				log.Println("info: unregister client")
				h.removeLocked(client.Id)
				close(client.done)
				// the Send channel stays open on purpose, writers check
				// membership under the read lock and the gc collects it
				observability.ActiveConnections.Dec()
			}
			h.Unlock()
		}
	}
}

// removeLocked drops the connection from all rooms and the client map.
// Callers hold the write lock.
func (h *Hub) removeLocked(connId string) {
	for room := range h.byConn[connId] {
		if conns, ok := h.rooms[room]; ok {
			delete(conns, connId)
			if len(conns) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.byConn, connId)
	delete(h.clients, connId)
}

// NoClients returns the number of clients registered.
func (h *Hub) NoClients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// Join adds the connection to a room.
func (h *Hub) Join(connId, room string) {
	h.Lock()
	defer h.Unlock()
	client, ok := h.clients[connId]
	if !ok {
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][connId] = client
	if _, ok := h.byConn[connId]; !ok {
		h.byConn[connId] = make(map[string]struct{})
	}
	h.byConn[connId][room] = struct{}{}
}

// Leave removes the connection from a room.
func (h *Hub) Leave(connId, room string) {
	h.Lock()
	defer h.Unlock()
	if conns, ok := h.rooms[room]; ok {
		delete(conns, connId)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.byConn[connId]; ok {
		delete(rooms, room)
	}
}

// Rooms returns the rooms the connection currently occupies.
func (h *Hub) Rooms(connId string) []string {
	h.RLock()
	defer h.RUnlock()
	rooms := make([]string, 0, len(h.byConn[connId]))
	for room := range h.byConn[connId] {
		rooms = append(rooms, room)
	}
	return rooms
}

func wireMessage(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(types.WebsocketMessage{Event: event, Data: data})
}

// ToConn emits to one connection.
func (h *Hub) ToConn(connId, event string, payload interface{}) {
	raw, err := wireMessage(event, payload)
	if err != nil {
		log.Printf("error: could not marshal %s event: %s", event, err)
		return
	}
	h.RLock()
	defer h.RUnlock()
	if client, ok := h.clients[connId]; ok {
		client.enqueue(raw)
	}
}

// ToRoom emits to every connection in the room, including the sender.
func (h *Hub) ToRoom(room, event string, payload interface{}) {
	h.toRoom("", room, event, payload)
}

// ToRoomExcept emits to every connection in the room except one.
func (h *Hub) ToRoomExcept(exceptConnId, room, event string, payload interface{}) {
	h.toRoom(exceptConnId, room, event, payload)
}

func (h *Hub) toRoom(exceptConnId, room, event string, payload interface{}) {
	raw, err := wireMessage(event, payload)
	if err != nil {
		log.Printf("error: could not marshal %s event: %s", event, err)
		return
	}
	h.RLock()
	defer h.RUnlock()
	for connId, client := range h.rooms[room] {
		if connId == exceptConnId {
			continue
		}
		client.enqueue(raw)
	}
}

// Broadcast emits to every connection except one.
func (h *Hub) Broadcast(exceptConnId, event string, payload interface{}) {
	raw, err := wireMessage(event, payload)
	if err != nil {
		log.Printf("error: could not marshal %s event: %s", event, err)
		return
	}
	h.RLock()
	defer h.RUnlock()
	for connId, client := range h.clients {
		if connId == exceptConnId {
			continue
		}
		client.enqueue(raw)
	}
}
