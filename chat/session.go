package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"chat-presence/globals"
	"chat-presence/observability"
	"chat-presence/persistence"
	"chat-presence/types"
	"github.com/folkengine/goname"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"
)

// SessionConfig carries the per-session tunables.
type SessionConfig struct {
	HistorySize  int
	TypingExpiry time.Duration
}

// Session is the per-connection state and the single entry point for inbound
// protocol events. It owns the connection's room membership (at most one room
// at a time) and the typing-expiry timers, and dispatches to the services.
type Session struct {
	connId     string
	transport  Transport
	store      persistence.Persister
	registry   *RoomRegistry
	presence   *PresenceService
	moderation *ModerationService
	messages   *MessageService
	typing     *TypingTracker

	historySize  int
	typingExpiry time.Duration
	log          hclog.Logger

	mu         sync.Mutex
	room       string
	lastUserId string
}

func NewSession(connId string, transport Transport, store persistence.Persister, registry *RoomRegistry,
	presence *PresenceService, moderation *ModerationService, messages *MessageService, cfg SessionConfig) *Session {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	if cfg.TypingExpiry <= 0 {
		cfg.TypingExpiry = 2 * time.Second
	}
	return &Session{
		connId:       connId,
		transport:    transport,
		store:        store,
		registry:     registry,
		presence:     presence,
		moderation:   moderation,
		messages:     messages,
		typing:       NewTypingTracker(),
		historySize:  cfg.HistorySize,
		typingExpiry: cfg.TypingExpiry,
		log:          globals.AppLogger.Named("session").With("conn", connId),
	}
}

// ConnId returns the identity of the underlying connection.
func (s *Session) ConnId() string {
	return s.connId
}

// CurrentRoom returns the room the connection currently occupies, or "".
func (s *Session) CurrentRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func decodePayload(data json.RawMessage, out interface{}) error {
	payloadMap := make(map[string]interface{})
	if err := json.Unmarshal(data, &payloadMap); err != nil {
		return err
	}
	return mapstructure.WeakDecode(payloadMap, out)
}

// Handle dispatches one inbound event. It is the single point that logs
// handler failures; a failed handler aborts its own remaining steps and
// nothing else.
func (s *Session) Handle(event string, data json.RawMessage) {
	observability.EventsTotal.WithLabelValues(event).Inc()
	var err error
	switch event {
	case types.EventLogin:
		payload := types.LoginPayload{}
		if err = decodePayload(data, &payload); err == nil {
			err = s.onLogin(payload.UserId, payload.RoomName)
		}

	case types.EventUserMessage:
		payload := types.UserMessagePayload{}
		if err = decodePayload(data, &payload); err == nil {
			err = s.onUserMessage(payload.Message, payload.UserId)
		}

	case types.EventTyping:
		payload := types.TypingPayload{}
		if err = decodePayload(data, &payload); err == nil {
			err = s.onTyping(payload.UserId, payload.IsTyping)
		}

	case types.EventMuteUser:
		payload := types.ModerationPayload{}
		if err = decodePayload(data, &payload); err == nil {
			err = s.moderation.SetMuted(s.connId, s.CurrentRoom(), payload.ModeratorId, payload.TargetUserId, true)
		}

	case types.EventUnmuteUser:
		payload := types.ModerationPayload{}
		if err = decodePayload(data, &payload); err == nil {
			err = s.moderation.SetMuted(s.connId, s.CurrentRoom(), payload.ModeratorId, payload.TargetUserId, false)
		}

	case types.EventKickUser:
		payload := types.ModerationPayload{}
		if err = decodePayload(data, &payload); err == nil {
			err = s.moderation.Kick(s.connId, s.CurrentRoom(), payload.ModeratorId, payload.TargetUserId)
		}

	case types.EventLogout:
		// logout carries a bare string, not an object
		var userId string
		if err = json.Unmarshal(data, &userId); err == nil {
			err = s.onLogout(userId)
		}

	case types.EventSendToRoom:
		payload := types.SendToRoomPayload{}
		if err = decodePayload(data, &payload); err == nil {
			s.onSendToRoom(payload.Room, payload.Message)
		}

	default:
		s.log.Warn("unknown event", "event", event)
	}
	if err != nil {
		s.log.Error("handler failed", "event", event, "error", err)
	}
}

// onLogin moves the connection into the room, computes the role from the
// occupancy rule, upserts the user row and replays history, roster and
// presence to the relevant audiences.
//
// The occupant count and the upsert are deliberately not serialized per room:
// two concurrent logins into an empty room can both end up moderator. Closing
// that window would change observable behavior under load.
func (s *Session) onLogin(userId, roomName string) error {
	if roomName == "" {
		return nil
	}
	if userId == "" {
		userId = goname.New(goname.FantasyMap).FirstLast() + " (guest)"
	}
	for _, r := range s.transport.Rooms(s.connId) {
		s.transport.Leave(s.connId, r)
	}
	s.registry.EnsureRoom(roomName)
	s.transport.Join(s.connId, roomName)
	s.mu.Lock()
	s.room = roomName
	s.lastUserId = userId
	s.mu.Unlock()

	occupants, err := s.store.CountRoomOccupants(roomName)
	if err != nil {
		return err
	}
	role := types.RoleMember
	if occupants == 0 {
		role = types.RoleModerator
	}
	user := &types.User{
		Id:      userId,
		Status:  types.StatusOnline,
		NowRoom: roomName,
		Role:    role,
	}
	if err := s.store.UpsertUser(user); err != nil {
		return err
	}
	s.log.Info("login", "user", userId, "room", roomName, "role", role)

	history, err := s.store.RecentMessages(roomName, s.historySize)
	if err != nil {
		return err
	}
	entries := make([]types.HistoryEntry, 0, len(history))
	for _, msg := range history {
		entries = append(entries, types.HistoryEntry{
			UserId:    msg.UserId,
			Message:   msg.Text,
			Timestamp: msg.CreatedAt,
		})
	}
	s.transport.ToConn(s.connId, types.EventRoomHistory, entries)
	s.transport.ToConn(s.connId, types.EventJoinedRoom, types.JoinedRoom{
		RoomName: roomName,
		Message:  fmt.Sprintf("welcome to %s", roomName),
		Role:     user.Role,
		IsMuted:  user.IsMuted,
	})
	s.transport.ToRoomExcept(s.connId, roomName, types.EventRoomMessage, types.RoomMessage{
		Room:    roomName,
		Message: fmt.Sprintf("%s joined the room", userId),
	})
	s.presence.Broadcast(s.connId, user)

	roster, err := s.store.RoomOccupants(roomName)
	if err != nil {
		return err
	}
	rosterEntries := make([]types.RosterEntry, 0, len(roster))
	for _, u := range roster {
		rosterEntries = append(rosterEntries, types.RosterEntry{
			UserId:  u.Id,
			Status:  u.Status,
			Role:    u.Role,
			IsMuted: u.IsMuted,
		})
	}
	s.transport.ToConn(s.connId, types.EventRoomUsers, rosterEntries)
	return nil
}

// onUserMessage relays a chat message into the connection's current room.
// No-op when the connection occupies no room.
func (s *Session) onUserMessage(text, userId string) error {
	room := s.CurrentRoom()
	if room == "" {
		return nil
	}
	return s.messages.Send(s.connId, room, userId, text)
}

// onTyping debounces the typing indicator. A typing-start arms the expiry
// timer which reverts the participant to online after the silence interval; a
// typing-stop transitions directly. The computed status is persisted and
// broadcast immediately, independent of the timer outcome.
func (s *Session) onTyping(userId string, isTyping bool) error {
	s.typing.Cancel(userId)
	status := types.StatusOnline
	if isTyping {
		status = types.StatusTyping
		s.typing.Arm(userId, s.typingExpiry, func() {
			if _, err := s.presence.SetStatus(s.connId, userId, types.StatusOnline); err != nil {
				s.log.Error("typing expiry failed", "user", userId, "error", err)
			}
		})
	}
	_, err := s.presence.SetStatus(s.connId, userId, status)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	return err
}

// onLogout marks the participant offline with the sentinel room, leaves every
// occupied room with a notice to the remaining occupants and broadcasts the
// updated snapshot.
func (s *Session) onLogout(userId string) error {
	s.typing.Cancel(userId)
	user, err := s.store.SetUserPresence(userId, types.StatusOffline, globals.SentinelRoom)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, r := range s.transport.Rooms(s.connId) {
		s.transport.ToRoomExcept(s.connId, r, types.EventRoomMessage, types.RoomMessage{
			Room:    r,
			Message: fmt.Sprintf("%s left the room", userId),
		})
		s.transport.Leave(s.connId, r)
	}
	s.mu.Lock()
	s.room = ""
	s.mu.Unlock()
	s.log.Info("logout", "user", userId)
	s.presence.Broadcast(s.connId, user)
	return nil
}

// onSendToRoom is the unauthenticated raw relay: the text is multicast to the
// room excluding the sender, tagged with the connection id. No persistence,
// no validation.
func (s *Session) onSendToRoom(room, text string) {
	if room == "" {
		return
	}
	s.transport.ToRoomExcept(s.connId, room, types.EventRoomMessage, types.RoomMessage{
		Room:    room,
		Message: text,
		From:    s.connId,
	})
}

// Disconnect is invoked when the transport connection closes. It cancels all
// pending typing timers and marks the session's last-known participant
// offline. The mutation is scoped to that participant id; a disconnect before
// any login touches nothing.
func (s *Session) Disconnect() {
	s.typing.CancelAll()
	s.mu.Lock()
	userId := s.lastUserId
	s.room = ""
	s.lastUserId = ""
	s.mu.Unlock()
	if userId == "" {
		return
	}
	user, err := s.store.SetUserPresence(userId, types.StatusOffline, globals.SentinelRoom)
	if errors.Is(err, persistence.ErrNotFound) {
		return
	}
	if err != nil {
		s.log.Error("disconnect cleanup failed", "user", userId, "error", err)
		return
	}
	s.log.Info("disconnect", "user", userId)
	s.presence.Broadcast(s.connId, user)
}
