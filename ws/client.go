package ws

import (
	"encoding/json"
	"log"
	"time"

	"chat-presence/observability"
	"chat-presence/types"
	"github.com/gorilla/websocket"
)

// Handler receives the inbound events of one connection. It is implemented by
// the chat session.
type Handler interface {
	Handle(event string, data json.RawMessage)
	Disconnect()
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Unique connection identity.
	Id string

	// Buffered channel of outbound messages.
	Send chan []byte

	// Closed by the hub on unregister.
	done chan struct{}

	handler Handler
}

func NewClient(hub *Hub, conn *websocket.Conn, id string, handler Handler) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		Id:      id,
		Send:    make(chan []byte, sendChannelSize),
		done:    make(chan struct{}),
		handler: handler,
	}
}

// enqueue hands a marshalled event to the write loop without blocking the
// hub. A full buffer drops the event.
func (c *Client) enqueue(message []byte) {
	select {
	case c.Send <- message:
	default:
		observability.DroppedSendsTotal.Inc()
		log.Printf("error: send buffer full, dropping event for %s", c.Id)
	}
}

// ReadLoop pumps messages from the websocket connection to the handler.
//
// The application runs ReadLoop in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadLoop() {
	defer func() {
		c.handler.Disconnect()
		c.hub.Unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: ws closed unexpected: %s", err)
			}
			return
		}

		message := types.WebsocketMessage{}
		if err := json.Unmarshal(raw, &message); err != nil {
			log.Printf("error: could not unmarshal ws message: %s", err)
			continue
		}
		c.handler.Handle(message.Event, message.Data)
	}
}

// WriteLoop pumps messages from the hub to the websocket connection.
//
// A goroutine running WriteLoop is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WriteLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message := <-c.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				log.Println("info: could not write to ws connection, exiting write loop")
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("info: could not send ping message, exiting write loop")
				return
			}

		case <-c.done:
			log.Println("info: done channel closed, exiting write loop")
			return
		}
	}
}
