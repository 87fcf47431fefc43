package types

import (
	"encoding/json"
	"time"
)

// Inbound event names (participant -> server).
const (
	EventLogin       = "login"
	EventUserMessage = "userMessage"
	EventTyping      = "typing"
	EventMuteUser    = "muteUser"
	EventUnmuteUser  = "unmuteUser"
	EventKickUser    = "kickUser"
	EventLogout      = "logout"
	EventSendToRoom  = "sendToRoom"
)

// Outbound event names (server -> one/room/all).
const (
	EventRoomHistory       = "roomHistory"
	EventJoinedRoom        = "joinedRoom"
	EventRoomMessage       = "roomMessage"
	EventUserStatusChanged = "userStatusChanged"
	EventRoomUsers         = "roomUsers"
	EventErrorMessage      = "errorMessage"
	EventUserMuted         = "userMuted"
	EventUserKicked        = "userKicked"
)

// JSON-serialized WebsocketMessage is what is actually sent via the websocket
// connection, in both directions.
type WebsocketMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// The different payloads transferred from the client to here. The logout
// event carries a bare string (the user id) instead of an object.

type LoginPayload struct {
	UserId   string `json:"userId" mapstructure:"userId"`
	RoomName string `json:"roomName" mapstructure:"roomName"`
}

type UserMessagePayload struct {
	Message string `json:"message" mapstructure:"message"`
	UserId  string `json:"userId" mapstructure:"userId"`
}

type TypingPayload struct {
	UserId   string `json:"userId" mapstructure:"userId"`
	IsTyping bool   `json:"isTyping" mapstructure:"isTyping"`
}

type ModerationPayload struct {
	TargetUserId string `json:"targetUserId" mapstructure:"targetUserId"`
	ModeratorId  string `json:"moderatorId" mapstructure:"moderatorId"`
}

type SendToRoomPayload struct {
	Room    string `json:"room" mapstructure:"room"`
	Message string `json:"message" mapstructure:"message"`
}

// The different payloads transferred from here to the clients.

// HistoryEntry is one element of the roomHistory array: a persisted message
// joined with its sender identity.
type HistoryEntry struct {
	UserId    string    `json:"userId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type JoinedRoom struct {
	RoomName string `json:"roomName"`
	Message  string `json:"message"`
	Role     Role   `json:"role"`
	IsMuted  bool   `json:"isMuted"`
}

// RoomMessage is a system notice or raw relay scoped to one room. From is
// only set on the sendToRoom relay path and carries the connection id.
type RoomMessage struct {
	Room    string `json:"room"`
	Message string `json:"message"`
	From    string `json:"from,omitempty"`
}

// UserMessageOut is the room fan-out of a persisted chat message.
type UserMessageOut struct {
	Message   string    `json:"message"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// RosterEntry is one element of the roomUsers array.
type RosterEntry struct {
	UserId  string `json:"userId"`
	Status  Status `json:"status"`
	Role    Role   `json:"role"`
	IsMuted bool   `json:"isMuted"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

type UserMuted struct {
	UserId string `json:"userId"`
	Muted  bool   `json:"muted"`
}

type UserKicked struct {
	UserId string `json:"userId"`
}
